package recommend

import "errors"

// ErrNotReady is returned when no model generation is available to answer a request.
// It wraps the training failure when one caused it.
var ErrNotReady = errors.New("recommender not ready")
