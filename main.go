package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/croft3/udpnode/app"
	"github.com/croft3/udpnode/domain"
	"github.com/croft3/udpnode/node"
)

var quotes = []string{
	"Attitude is the \"little thing\" that makes a big difference",
	"Life is too short to spend another day at war with yourself",
	"The best time to plant a tree was 20 years ago. The second best time is now",
	"Be happy for this moment. This moment is your life",
	"A good laugh and a long sleep are the two best cures for anything",
	"The sun is a daily reminder that we too can rise again from the darkness, that we too can shine our own light",
	"Today is a good day to try",
	"The only person you are destined to become is the person you decide to be",
}

func main() {
	var (
		mode     = flag.String("mode", "receive", "receive or transmit")
		port     = flag.Int("port", 3490, "local listening port (receive mode)")
		destHost = flag.String("dest", "::1", "destination host (transmit mode)")
		destPort = flag.Int("dest-port", 3490, "destination port (transmit mode)")
		useIPv4  = flag.Bool("ipv4", false, "use IPv4 instead of IPv6")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	family := domain.IPv6
	if *useIPv4 {
		family = domain.IPv4
	}

	switch *mode {
	case "receive":
		runReceiver(node.Config{Port: *port, Family: family, Debug: *debug})
	case "transmit":
		runTransmitter(family, *destHost, *destPort, *debug)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func runReceiver(cfg node.Config) {
	var (
		ctxWithCancel, cancel = context.WithCancel(context.Background())
		interrupt             = make(chan os.Signal, 1)
	)
	defer cancel()

	// A node without its listening socket cannot exist; treat a
	// bind failure as a startup failure.
	n, err := node.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Notify main of any interruptions
	signal.Notify(interrupt, os.Interrupt)

	application := app.NewApplication(n)
	stopped := application.Start(ctxWithCancel)

	// Handle graceful shutdown
	for {
		select {
		case <-stopped:
			log.Println("node is stopped, goodbye")
			return

		case <-interrupt:
			log.Println("starting graceful shutdown")
			cancel()
		}
	}
}

func runTransmitter(family domain.IPFamily, host string, destPort int, debug bool) {
	n, err := node.New(node.Config{Port: 0, Family: family, Debug: debug})
	if err != nil {
		log.Fatal(err)
	}
	defer n.StopReceiving() // closes the listening socket

	for _, q := range quotes {
		if err := n.Send(destPort, family, host, q, false); err != nil {
			log.Printf("send to %s:%d failed: %v", host, destPort, err)
		}
	}
}
