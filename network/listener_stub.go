package network

import (
	"net"
	"sync"
	"time"
)

// StubResponse is one canned Receive result for the ListenerStub.
type StubResponse struct {
	Packet *Packet
	Err    error
}

// ListenerStub replays a fixed sequence of responses and then
// blocks until closed, the way an idle UDP socket would. It lets
// receive-loop behavior be tested without real sockets.
type ListenerStub struct {
	mu        sync.Mutex
	cursor    int
	responses []StubResponse

	closed    chan struct{}
	closeOnce sync.Once
}

func NewListenerStub(responses []StubResponse) *ListenerStub {
	return &ListenerStub{
		responses: responses,
		closed:    make(chan struct{}),
	}
}

func (s *ListenerStub) Receive(maxSize int) (*Packet, error) {
	s.mu.Lock()
	if s.cursor < len(s.responses) {
		response := s.responses[s.cursor]
		s.cursor++
		s.mu.Unlock()
		<-time.After(time.Millisecond)
		return response.Packet, response.Err
	}
	s.mu.Unlock()

	<-s.closed
	return nil, net.ErrClosed
}

func (s *ListenerStub) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

func (s *ListenerStub) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv6loopback, Port: 0}
}
