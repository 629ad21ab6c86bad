package main

import (
	"go.uber.org/zap"

	"github.com/gogojames/lightweb/wsconn"
)

// echoHandler grounds the WebSocket demo endpoint on the teacher's
// examples/highlevel/echo main: every text or binary message received is
// written straight back to the same connection.
func echoHandler(logger *zap.Logger) wsconn.Handler {
	return wsconn.Handler{
		OnOpen: func(c *wsconn.Connection) {
			logger.Info("websocket connection opened", zap.String("id", c.ID()), zap.String("remote_addr", c.RemoteAddr()))
		},
		OnText: func(c *wsconn.Connection, message string) {
			if err := c.SendText(message); err != nil {
				logger.Warn("echo send failed", zap.String("id", c.ID()), zap.Error(err))
			}
		},
		OnBinary: func(c *wsconn.Connection, data []byte) {
			if err := c.SendBinary(data); err != nil {
				logger.Warn("echo send failed", zap.String("id", c.ID()), zap.Error(err))
			}
		},
		OnClose: func(c *wsconn.Connection, code int, reason string) {
			logger.Info("websocket connection closed", zap.String("id", c.ID()), zap.Int("code", code), zap.String("reason", reason))
		},
		OnError: func(c *wsconn.Connection, err error) {
			logger.Warn("websocket connection error", zap.String("id", c.ID()), zap.Error(err))
		},
	}
}
