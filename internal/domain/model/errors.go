package model

import "errors"

var (
	ErrMalformedMessage = errors.New("malformed feed message")
	ErrNoSymbols        = errors.New("no symbols to subscribe")
	ErrClosed           = errors.New("connection closed")
	ErrUnknownSource    = errors.New("unknown feed mode")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrHeartbeatTimeout = errors.New("no frame received within heartbeat timeout")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
