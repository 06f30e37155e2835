package client

import "errors"

var (
	// ErrRegistrationRejected is returned by Dial when the relay
	// answers the handshake with RegisterRejected, meaning the
	// requested handle is already in use or invalid.
	ErrRegistrationRejected = errors.New("client: handle rejected by relay")

	// ErrClosed is returned by send methods after Close, or after the
	// connection has been lost.
	ErrClosed = errors.New("client: closed")

	// ErrHandshake is returned by Dial when the relay answers the
	// Register with anything other than a registration verdict.
	ErrHandshake = errors.New("client: unexpected handshake reply")

	// ErrUnknownCommand is returned by ParseCommand for input that is
	// not one of the %M, %B, %C, %L commands.
	ErrUnknownCommand = errors.New("client: unknown command")

	// ErrCommandFormat is returned by ParseCommand for a recognized
	// command with missing or invalid arguments.
	ErrCommandFormat = errors.New("client: invalid command format")
)
