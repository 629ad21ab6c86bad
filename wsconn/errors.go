package wsconn

import "errors"

var (
	errConnectionClosed = errors.New("wsconn: connection is closed")
	errSendQueueFull    = errors.New("wsconn: send queue is full")
)
