package network

import "net"

// Packet is one raw datagram as it came off the socket.
type Packet struct {
	Addr *net.UDPAddr // sender address
	Data []byte
}

// Listener is a bound datagram socket the receive loop reads from.
// Receive blocks until a datagram arrives, the socket is closed
// (the error satisfies errors.Is(err, net.ErrClosed)), or a
// transport error occurs.
type Listener interface {
	Receive(maxSize int) (*Packet, error)
	Close() error
	LocalAddr() net.Addr
}
