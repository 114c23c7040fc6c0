// Package detection turns raw detector output into a single accepted
// measurement per frame.
//
// Responsibilities: decoding a YOLO-style [1, N, 5+C] output tensor,
// intersection-over-union, non-max suppression, confidence/malformation
// validation, best-of-frame selection and a short accepted-detection history.
// Key types: Detection, Box, Tensor, Validator, History.
//
// Every function here is deterministic and never mutates its inputs; ties
// are broken by original order.
package detection
