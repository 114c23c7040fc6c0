// Package motion owns the single-object motion estimator.
//
// The estimator is an alpha-beta style filter: accepted measurements are
// blended into the position/velocity estimate with a jump-dependent alpha,
// and missed frames are dead-reckoned with geometric confidence decay and
// friction until the object is judged stationary.
//
// State is an explicit value and Update is a pure function of
// (config, state, measurement, dt). Estimator wraps it with a clock for
// callers that want wall-clock time steps.
package motion
