package server

import (
	"bytes"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// clientConn implements gammon.Client on top of a message transport. Commands are
// read and forwarded until the transport fails, while queued events are written in
// order by a separate goroutine.
type clientConn struct {
	address    string
	events     chan []byte
	commands   chan<- []byte
	terminated atomic.Bool
	wgEvents   sync.WaitGroup
	verbose    bool

	read  func() ([]byte, error) // Reads one command. io.EOF ends the connection cleanly.
	write func(event []byte) error
	close func() error
}

func (c *clientConn) Address() string {
	return c.address
}

func (c *clientConn) HandleReadWrite() {
	if c.Terminated() {
		return
	}

	closeWrite := make(chan struct{}, 1)

	go c.writeEvents(closeWrite)
	c.readCommands()

	closeWrite <- struct{}{}
}

func (c *clientConn) Write(message []byte) {
	if c.Terminated() {
		return
	}

	c.wgEvents.Add(1)
	c.events <- message
}

func (c *clientConn) readCommands() {
	for {
		command, err := c.read()
		if errors.Is(err, io.EOF) {
			c.Terminate("")
			return
		} else if err != nil {
			c.Terminate(err.Error())
			return
		} else if c.Terminated() {
			return
		}

		c.commands <- command

		if c.verbose {
			logClientRead(command)
		}
	}
}

func (c *clientConn) writeEvents(closeWrite chan struct{}) {
	var event []byte
	for {
		select {
		case <-closeWrite:
			for {
				select {
				case <-c.events:
					c.wgEvents.Done()
				default:
					return
				}
			}
		case event = <-c.events:
		}

		if c.Terminated() {
			c.wgEvents.Done()
			continue
		}

		err := c.write(event)
		if err != nil {
			c.Terminate(err.Error())
			c.wgEvents.Done()
			continue
		}

		if c.verbose && !bytes.HasPrefix(event, []byte(`{"Type":"ping"`)) && !bytes.HasPrefix(event, []byte(`{"Type":"list"`)) {
			log.Printf("-> %s", event)
		}
		c.wgEvents.Done()
	}
}

func (c *clientConn) Terminate(reason string) {
	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	c.close()
}

func (c *clientConn) Terminated() bool {
	return c.terminated.Load()
}
