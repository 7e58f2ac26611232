// Package node implements a single addressable UDP endpoint that
// transmits framed, checksummed messages and concurrently receives
// them into a bounded FIFO queue.
package node

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/croft3/udpnode/checksum"
	"github.com/croft3/udpnode/domain"
	"github.com/croft3/udpnode/errs"
	"github.com/croft3/udpnode/network"
	"github.com/croft3/udpnode/queues/fifoqueue"
	"github.com/croft3/udpnode/utils"
	"github.com/croft3/udpnode/wire"
)

// ErrAlreadyRunning is returned by StartReceiving when the receive
// loop is already active. At most one loop runs per node.
var ErrAlreadyRunning = errors.New("node: receive loop already running")

// ErrClosed is returned by StartReceiving after StopReceiving has
// closed the listening socket; the node cannot receive again.
var ErrClosed = errors.New("node: listening socket closed")

// wakeupPayload is the body of the self-addressed datagram sent by
// StopReceiving to nudge a blocked receive.
const wakeupPayload = "goodbye"

// Config carries the node construction parameters. Zero values for
// MaxMessageSize and MaxQueueDepth fall back to the defaults.
type Config struct {
	Port           int
	Family         domain.IPFamily
	MaxMessageSize int
	MaxQueueDepth  int
	Debug          bool
}

func (c Config) withDefaults() Config {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = domain.DefaultMaxMessageSize
	}
	if c.MaxQueueDepth == 0 {
		c.MaxQueueDepth = domain.DefaultMaxQueueDepth
	}
	return c
}

// Node owns one bound listening socket for its whole lifetime and,
// while receiving, exactly one background goroutine reading from
// it. The owning goroutine and the receive goroutine share only the
// bounded receive queue and an atomic stop flag.
type Node struct {
	cfg      Config
	id       uuid.UUID
	listener network.Listener
	codec    *wire.Codec
	queue    *fifoqueue.FIFOQueue[domain.Datagram]
	logger   *utils.Logger

	mu       sync.Mutex
	running  bool
	stopped  bool // listener closed by StopReceiving
	done     chan struct{}
	stopping atomic.Bool
}

// New binds the listening socket and returns a usable node. A bind
// failure is fatal to construction: no node exists without its
// listening socket, and the caller must treat the error as
// unrecoverable for this endpoint.
func New(cfg Config) (*Node, error) {
	listener, err := network.BindListening(cfg.Port, cfg.Family)
	if err != nil {
		return nil, err
	}

	n := newWithListener(cfg, listener)
	n.logger.Infof("listening on port %d (%s)", n.Port(), cfg.Family)
	return n, nil
}

// newWithListener finishes construction around an existing
// listener. Tests use it to inject a stub transport.
func newWithListener(cfg Config, listener network.Listener) *Node {
	cfg = cfg.withDefaults()
	id := uuid.New()
	return &Node{
		cfg:      cfg,
		id:       id,
		listener: listener,
		codec:    wire.NewCodec(),
		queue:    fifoqueue.NewFIFOQueue[domain.Datagram](cfg.MaxQueueDepth),
		logger:   utils.NewLogger("node "+id.String()[:8], cfg.Debug),
	}
}

func (n *Node) ID() uuid.UUID {
	return n.id
}

// Port reports the port the listening socket is actually bound to,
// which differs from the configured port when that was 0.
func (n *Node) Port() int {
	if ua, ok := n.listener.LocalAddr().(*net.UDPAddr); ok {
		return ua.Port
	}
	return n.cfg.Port
}

// Receiving reports whether the receive loop is active.
func (n *Node) Receiving() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// StartReceiving spawns the background receive loop. It fails with
// ErrAlreadyRunning if the loop is active; the node never runs two
// loops at once.
func (n *Node) StartReceiving() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return ErrAlreadyRunning
	}
	if n.stopped {
		return ErrClosed
	}

	n.stopping.Store(false)
	n.done = make(chan struct{})
	n.running = true
	go n.rxLoop(n.done)

	return nil
}

// StopReceiving asks the receive loop to terminate and waits until
// it has. The stop flag and the self-addressed wake-up datagram are
// the cooperative half of the protocol; closing the listening
// socket is the guaranteed unblock, since the wake-up datagram
// rides the same best-effort transport as everything else. Safe to
// call repeatedly and from the idle state. The listening socket is
// gone afterwards, so the node can still send but never receive
// again; a later StartReceiving fails with ErrClosed.
func (n *Node) StopReceiving() {
	n.stopping.Store(true)

	n.mu.Lock()
	done := n.done
	n.stopped = true
	n.mu.Unlock()

	if done != nil {
		if err := n.Send(n.Port(), n.cfg.Family, "localhost", wakeupPayload, true); err != nil {
			n.logger.Debugf("stop: wake-up datagram not sent: %v", err)
		}
	}

	if err := n.listener.Close(); err != nil {
		n.logger.Warnf("stop: closing listener: %v", err)
	}

	if done != nil {
		<-done
	}
	n.logger.Debugf("stop: receive loop joined")
}

// Send frames payload and transmits it to host:destPort over a
// short-lived socket. Transport errors come back verbatim; node
// state is untouched by a failed send.
func (n *Node) Send(destPort int, family domain.IPFamily, host, payload string, join bool) error {
	b, err := n.codec.Encode(payload, join)
	if err != nil {
		return err
	}

	sent, err := network.SendDatagram(host, destPort, family, b)
	if err != nil {
		return err
	}

	n.logger.Debugf("tx: sent %d bytes to %s:%d", sent, host, destPort)
	return nil
}

// DataAvailable reports whether the receive queue holds at least
// one datagram.
func (n *Node) DataAvailable() bool {
	return !n.queue.IsEmpty()
}

// QueueDepth returns the current receive queue size.
func (n *Node) QueueDepth() int {
	return n.queue.Len()
}

// PopDatagram removes and returns the oldest received datagram. The
// second return is false when the queue is empty; callers are
// expected to check DataAvailable or QueueDepth first.
func (n *Node) PopDatagram() (domain.Datagram, bool) {
	v, ok := n.queue.Pop()
	if !ok {
		return domain.Datagram{}, false
	}
	return *v, true
}

// DescribeError returns the static human-readable description for a
// taxonomy code, for callers surfacing diagnostics.
func (n *Node) DescribeError(c errs.Code) string {
	return errs.Describe(c)
}

// rxLoop is the receive goroutine body: read, decode, validate,
// enqueue, until stopped or a fatal receive-path error. Exits mark
// the node idle so a later StartReceiving is not refused.
func (n *Node) rxLoop(done chan struct{}) {
	defer close(done)
	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
	}()

	for !n.stopping.Load() {
		pkt, err := n.listener.Receive(n.cfg.MaxMessageSize)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				n.logger.Debugf("rxloop: listener closed, exiting")
				return
			}
			n.logger.Warnf("rxloop: %v", err)
			return
		}

		// Re-check after every unblock so a stop request never
		// waits for a second datagram.
		if n.stopping.Load() {
			return
		}

		if len(pkt.Data) == 0 {
			continue
		}

		if n.cfg.Debug {
			n.inspect(pkt)
		}

		msg, err := wire.Decode(pkt.Data)
		if err != nil {
			// A malformed frame ends the loop; the node stays
			// usable for sending.
			n.logger.Warnf("rxloop: %v, exiting", err)
			return
		}

		dg := domain.Datagram{
			SrcPort:   uint16(pkt.Addr.Port),
			SrcAddr:   pkt.Addr.IP.String(),
			Timestamp: int64(msg.Time),
			Payload:   msg.Msg,
			Checksum:  msg.CRC,
			Join:      msg.Join,
		}

		// Join frames, invalid checksums, and a full queue are
		// independent drop reasons; none of them ends the loop.
		if dg.Join {
			n.logger.Debugf("rxloop: join requested by %s:%d", dg.SrcAddr, dg.SrcPort)
			continue
		}

		if !checksum.Verify(dg.Payload, dg.Checksum) {
			n.logger.Warnf("rxloop: checksum invalid, discarding")
			continue
		}

		if !n.queue.Push(dg) {
			n.logger.Warnf("rxloop: receive queue full, discarding")
		}
	}
}

func (n *Node) inspect(pkt *network.Packet) {
	n.logger.Debugf("rxloop: got %d bytes from %s: %s", len(pkt.Data), pkt.Addr, pkt.Data)
}
