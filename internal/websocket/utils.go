package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second

	// readTimeout must comfortably exceed the client heartbeat cadence so
	// an idle but connected exam page is not dropped.
	readTimeout = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response frame over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadFrame reads and decodes the next client frame, refreshing the read
// deadline.
func ReadFrame(conn *websocket.Conn, v *StreamRequest) error {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	return conn.ReadJSON(v)
}
