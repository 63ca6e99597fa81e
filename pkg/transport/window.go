package transport

// Inbound is one message received from an opened wallet surface, tagged with
// the origin it was sent from. Origin filtering happens in the flow runner,
// not in Window implementations.
type Inbound struct {
	Origin string
	Data   []byte
}

// Window is one opened wallet surface for the popup strategy. Messages
// returns a channel that is closed when the surface can no longer deliver;
// Closed reports whether the user has dismissed the surface.
type Window interface {
	Post(message []byte) error
	Messages() <-chan Inbound
	Closed() bool
	Close()
}

// Opener supplies wallet surfaces to the transport. Open starts an
// interactive window at the given URL; Launch fires a deep link without
// waiting for any response.
type Opener interface {
	Open(url string) (Window, error)
	Launch(url string) error
}
