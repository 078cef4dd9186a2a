package gammon

// Client is a connection to the server over which line-based commands are received
// and events are sent.
type Client interface {
	HandleReadWrite()
	Write(message []byte)
	Terminate(reason string)
	Terminated() bool
	Address() string
}
