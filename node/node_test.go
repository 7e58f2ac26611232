package node

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/croft3/udpnode/checksum"
	"github.com/croft3/udpnode/domain"
	"github.com/croft3/udpnode/network"
	"github.com/croft3/udpnode/wire"
)

var stubSender = &net.UDPAddr{IP: net.IPv6loopback, Port: 5590}

func stubPacket(t *testing.T, payload string, join bool) network.StubResponse {
	t.Helper()
	b, err := wire.NewCodec().Encode(payload, join)
	require.NoError(t, err)
	return network.StubResponse{Packet: &network.Packet{Addr: stubSender, Data: b}}
}

func rawPacket(data string) network.StubResponse {
	return network.StubResponse{Packet: &network.Packet{Addr: stubSender, Data: []byte(data)}}
}

func stubNode(responses []network.StubResponse, depth int) (*Node, *network.ListenerStub) {
	stub := network.NewListenerStub(responses)
	n := newWithListener(Config{Family: domain.IPv6, MaxQueueDepth: depth}, stub)
	return n, stub
}

func Test_node_queues_valid_datagrams_in_order(t *testing.T) {
	n, _ := stubNode([]network.StubResponse{
		stubPacket(t, "one", false),
		stubPacket(t, "two", false),
	}, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	require.Eventually(t, func() bool {
		return n.QueueDepth() == 2
	}, 2*time.Second, 10*time.Millisecond)

	first, ok := n.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "one", first.Payload)
	require.Equal(t, uint16(5590), first.SrcPort)
	require.True(t, first.Valid())
	require.False(t, first.Join)

	second, ok := n.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "two", second.Payload)

	require.False(t, n.DataAvailable())
}

func Test_node_drops_invalid_checksum_and_keeps_running(t *testing.T) {
	corrupted := fmt.Sprintf(`{"Time":5,"Msg":"hello","CRC":%d}`, checksum.Compute("hello")^0x01)

	n, _ := stubNode([]network.StubResponse{
		rawPacket(corrupted),
		stubPacket(t, "ok", false),
	}, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	require.Eventually(t, func() bool {
		return n.QueueDepth() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dg, ok := n.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "ok", dg.Payload)
}

func Test_node_never_queues_join_frames(t *testing.T) {
	n, _ := stubNode([]network.StubResponse{
		stubPacket(t, "goodbye", true),
		stubPacket(t, "regular", false),
	}, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	require.Eventually(t, func() bool {
		return n.QueueDepth() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dg, ok := n.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "regular", dg.Payload)
}

func Test_node_drops_newest_when_queue_full(t *testing.T) {
	n, _ := stubNode([]network.StubResponse{
		stubPacket(t, "first", false),
		stubPacket(t, "second", false),
		stubPacket(t, "third", false),
	}, 1)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	require.Eventually(t, func() bool {
		return n.QueueDepth() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Let the remaining frames arrive and be discarded.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, n.QueueDepth())

	dg, ok := n.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "first", dg.Payload)
}

func Test_node_exits_on_malformed_frame(t *testing.T) {
	n, _ := stubNode([]network.StubResponse{
		rawPacket(`{"Time":5,"CRC":9}`),
		stubPacket(t, "never processed", false),
	}, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	require.Eventually(t, func() bool {
		return !n.Receiving()
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 0, n.QueueDepth())
}

func Test_node_exits_on_transport_error(t *testing.T) {
	n, _ := stubNode([]network.StubResponse{
		{Err: errors.New("recvfrom: input/output error")},
		stubPacket(t, "never processed", false),
	}, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())

	// A transport-level failure ends the loop without queueing
	// anything; only a close is a clean unblock.
	require.Eventually(t, func() bool {
		return !n.Receiving()
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 0, n.QueueDepth())

	// The node remains usable for sending afterwards.
	require.NoError(t, n.Send(9, domain.IPv4, "127.0.0.1", "still alive", false))
}

func Test_start_receiving_after_stop_fails(t *testing.T) {
	n, _ := stubNode(nil, 5)

	require.NoError(t, n.StartReceiving())
	n.StopReceiving()

	// The listening socket is gone once stopped; a restart would
	// spin on a closed listener, so it is refused outright.
	require.ErrorIs(t, n.StartReceiving(), ErrClosed)
	require.False(t, n.Receiving())
}

func Test_start_receiving_twice_fails(t *testing.T) {
	n, _ := stubNode(nil, 5)
	defer n.StopReceiving()

	require.NoError(t, n.StartReceiving())
	require.ErrorIs(t, n.StartReceiving(), ErrAlreadyRunning)
}

func Test_stop_receiving_is_idempotent_and_safe_when_idle(t *testing.T) {
	n, _ := stubNode(nil, 5)

	// Never started: both calls are no-ops.
	n.StopReceiving()
	n.StopReceiving()

	require.False(t, n.Receiving())
}

func Test_node_end_to_end_ipv4(t *testing.T) {
	a, err := New(Config{Port: 0, Family: domain.IPv4, MaxQueueDepth: 5})
	require.NoError(t, err)
	defer a.StopReceiving()

	b, err := New(Config{Port: 0, Family: domain.IPv4})
	require.NoError(t, err)
	defer b.StopReceiving()

	require.NoError(t, a.StartReceiving())
	require.NoError(t, b.Send(a.Port(), domain.IPv4, "127.0.0.1", "hello", false))

	require.Eventually(t, func() bool {
		return a.QueueDepth() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dg, ok := a.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "hello", dg.Payload)
	require.True(t, dg.Valid())
	require.False(t, dg.Join)
	require.InDelta(t, time.Now().Unix(), dg.Timestamp, 5)
}

func Test_node_end_to_end_ipv6(t *testing.T) {
	a, err := New(Config{Port: 0, Family: domain.IPv6, MaxQueueDepth: 5})
	if err != nil {
		t.Skipf("ipv6 loopback unavailable: %v", err)
	}
	defer a.StopReceiving()

	b, err := New(Config{Port: 0, Family: domain.IPv6})
	require.NoError(t, err)
	defer b.StopReceiving()

	require.NoError(t, a.StartReceiving())
	require.NoError(t, b.Send(a.Port(), domain.IPv6, "::1", "hello", false))

	require.Eventually(t, func() bool {
		return a.QueueDepth() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dg, ok := a.PopDatagram()
	require.True(t, ok)
	require.Equal(t, "hello", dg.Payload)
	require.True(t, dg.Valid())
}

func Test_stop_receiving_joins_within_bounded_time(t *testing.T) {
	n, err := New(Config{Port: 0, Family: domain.IPv4})
	require.NoError(t, err)

	require.NoError(t, n.StartReceiving())

	// No external traffic: the stop protocol alone must unblock
	// and join the loop.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		n.StopReceiving()
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("StopReceiving did not return in time")
	}

	require.False(t, n.Receiving())

	// The listening socket is closed after a stop.
	_, err = n.listener.Receive(16)
	require.ErrorIs(t, err, net.ErrClosed)
}
