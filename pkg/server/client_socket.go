package server

import (
	"bufio"
	"io"
	"net"
	"time"

	"codeberg.org/boneclub/gammon"
)

var _ gammon.Client = &clientConn{}

// newSocketClient returns a line protocol client. Each command and event is one line.
func newSocketClient(conn net.Conn, address string, commands chan<- []byte, events chan []byte, verbose bool) *clientConn {
	scanner := bufio.NewScanner(conn)
	return &clientConn{
		address:  address,
		events:   events,
		commands: commands,
		verbose:  verbose,
		read: func() ([]byte, error) {
			err := conn.SetReadDeadline(time.Now().Add(clientTimeout))
			if err != nil {
				return nil, err
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			buf := make([]byte, len(scanner.Bytes()))
			copy(buf, scanner.Bytes())
			return buf, nil
		},
		write: func(event []byte) error {
			err := conn.SetWriteDeadline(time.Now().Add(clientTimeout))
			if err != nil {
				return err
			}
			_, err = conn.Write(append(event, '\n'))
			return err
		},
		close: conn.Close,
	}
}
