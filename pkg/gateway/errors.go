package gateway

import "errors"

// ErrGatewayClosed is returned by ListenAndServe after Shutdown or
// Close.
var ErrGatewayClosed = errors.New("gateway: closed")
