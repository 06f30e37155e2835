package server

import "errors"

var (
	// ErrServerClosed is returned by Serve and ListenAndServe after
	// Shutdown or Close.
	ErrServerClosed = errors.New("server: closed")

	// ErrSessionClosed reports an enqueue on a session whose connection
	// is already closed.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrHandleTaken reports a registration attempt for a handle that is
	// already in the directory.
	ErrHandleTaken = errors.New("server: handle already registered")

	// ErrHandleUnknown reports a directory lookup for a handle that is
	// not registered.
	ErrHandleUnknown = errors.New("server: handle not registered")

	// ErrNotRegistered reports a routing packet from a connection that
	// never completed registration.
	ErrNotRegistered = errors.New("server: connection not registered")
)
