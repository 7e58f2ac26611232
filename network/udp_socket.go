package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/croft3/udpnode/domain"
	"github.com/croft3/udpnode/errs"
)

// UDPSocket is a bound UDP listening socket. Close is idempotent
// and unblocks a concurrent Receive.
type UDPSocket struct {
	conn *net.UDPConn

	mu     sync.Mutex
	closed bool
}

// BindListening resolves the wildcard address for port in the given
// family, creates the datagram socket, and binds it. The handle
// stays open until Close.
func BindListening(port int, family domain.IPFamily) (*UDPSocket, error) {
	laddr, err := net.ResolveUDPAddr(family.Network(), net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, errs.Wrap(errs.CodeAddressResolution, err)
	}

	conn, err := net.ListenUDP(family.Network(), laddr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeBind, err)
	}

	return &UDPSocket{conn: conn}, nil
}

// Receive blocks until a datagram of up to maxSize bytes arrives.
// A close of the socket surfaces as net.ErrClosed so callers can
// tell a shutdown from a transport failure.
func (s *UDPSocket) Receive(maxSize int) (*Packet, error) {
	buf := make([]byte, maxSize)

	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}
		return nil, errs.Wrap(errs.CodeReceive, err)
	}

	return &Packet{Addr: addr, Data: buf[:n]}, nil
}

// Close shuts the socket down. Closing an already-closed socket is
// a no-op.
func (s *UDPSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *UDPSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// SendDatagram resolves host, dials the first resolved candidate of
// the requested family with a short-lived socket, transmits b once,
// and closes the socket regardless of outcome. It returns the
// number of bytes written.
func SendDatagram(host string, port int, family domain.IPFamily, b []byte) (int, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return 0, errs.Wrap(errs.CodeAddressResolution, err)
	}

	var conn *net.UDPConn
	for _, ip := range ips {
		if !matchesFamily(ip.IP, family) {
			continue
		}
		c, derr := net.DialUDP(family.Network(), nil, &net.UDPAddr{
			IP:   ip.IP,
			Port: port,
			Zone: ip.Zone,
		})
		if derr != nil {
			continue
		}
		conn = c
		break
	}
	if conn == nil {
		return 0, errs.New(errs.CodeSocketCreate)
	}
	defer conn.Close()

	n, err := conn.Write(b)
	if err != nil {
		return n, errs.Wrap(errs.CodeSend, err)
	}
	return n, nil
}

func matchesFamily(ip net.IP, family domain.IPFamily) bool {
	if family == domain.IPv4 {
		return ip.To4() != nil
	}
	return ip.To4() == nil
}
