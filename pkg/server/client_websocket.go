package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
)

// webSocketProtocol is the subprotocol offered to browser clients. Clients which do
// not request it are still accepted.
const webSocketProtocol = "boneclub"

var acceptOptions = &websocket.AcceptOptions{
	Subprotocols:       []string{webSocketProtocol},
	InsecureSkipVerify: true,
	CompressionMode:    websocket.CompressionContextTakeover,
}

// newWebSocketClient upgrades the request and returns a client reading one command
// per text message. Binary messages are ignored. It returns nil when the upgrade fails.
func newWebSocketClient(r *http.Request, w http.ResponseWriter, address string, commands chan<- []byte, events chan []byte, verbose bool) *clientConn {
	conn, err := websocket.Accept(w, r, acceptOptions)
	if err != nil {
		return nil
	}

	return &clientConn{
		address:  address,
		events:   events,
		commands: commands,
		verbose:  verbose,
		read: func() ([]byte, error) {
			for {
				ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
				msgType, msgContent, err := conn.Read(ctx)
				cancel()
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, io.EOF) {
					return nil, io.EOF
				} else if err != nil {
					return nil, err
				} else if msgType != websocket.MessageText {
					continue
				}
				return msgContent, nil
			}
		},
		write: func(event []byte) error {
			ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
			defer cancel()
			return conn.Write(ctx, websocket.MessageText, event)
		},
		close: conn.CloseNow,
	}
}
