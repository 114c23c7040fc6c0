// Package trajectory records per-attempt paths and provides the stateless
// smoothing used for display and analysis.
//
// Key types: PathPoint, Path, Recorder.
// Smoothing never feeds back into the motion estimator.
package trajectory
