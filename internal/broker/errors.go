package broker

import "errors"

var (
	ErrUnknownKind    = errors.New("unknown broker kind")
	ErrPublishNacked  = errors.New("publish was nacked by broker")
	ErrConfirmsClosed = errors.New("confirmation channel closed")
	ErrCircuitOpen    = errors.New("broker circuit is open")
)
