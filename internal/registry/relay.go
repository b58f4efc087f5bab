package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/skygear-market/messaging/internal/nlog"

	zmq "github.com/pebbe/zmq4"
)

// ZMQRelay fans envelopes out to peer gateway processes over a PUB socket and
// applies envelopes received from the peers it subscribes to. Every gateway
// binds one PUB endpoint and subscribes to every peer's endpoint.
type ZMQRelay struct {
	// zmq sockets are not thread-safe and Publish is called from every
	// connection's read goroutine, so sends on the PUB socket are serialized.
	pubMu  sync.Mutex
	pub    *zmq.Socket
	sub    *zmq.Socket
	logger nlog.Logger
}

func getFullAddress(address string) string {
	return fmt.Sprintf("tcp://%s", address)
}

func NewZMQRelay(bind string, peers []string, logger nlog.Logger) (*ZMQRelay, error) {
	pub, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("could not create the PUB socket: %w", err)
	}
	if err := pub.Bind(getFullAddress(bind)); err != nil {
		pub.Close()
		return nil, fmt.Errorf("could not bind the PUB socket on %s: %w", bind, err)
	}

	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("could not create the SUB socket: %w", err)
	}
	if err := sub.SetSubscribe(""); err != nil {
		pub.Close()
		sub.Close()
		return nil, err
	}
	for _, peer := range peers {
		if err := sub.Connect(getFullAddress(peer)); err != nil {
			pub.Close()
			sub.Close()
			return nil, fmt.Errorf("could not connect to peer %s: %w", peer, err)
		}
	}
	// Bounded receive so Run can notice context cancellation.
	if err := sub.SetRcvtimeo(time.Second); err != nil {
		pub.Close()
		sub.Close()
		return nil, err
	}

	return &ZMQRelay{pub: pub, sub: sub, logger: logger}, nil
}

func (r *ZMQRelay) Publish(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	_, err = r.pub.SendBytes(payload, 0)
	return err
}

// Run consumes peer envelopes until the context is cancelled, handing each to
// apply (normally Dispatcher.Apply).
func (r *ZMQRelay) Run(ctx context.Context, apply func(Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := r.sub.RecvBytes(0)
		if err != nil {
			// Receive timeout; loop around and re-check the context.
			continue
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			r.logger.Logf("dropping malformed relay envelope: %v", err)
			continue
		}
		apply(env)
	}
}

func (r *ZMQRelay) Close() {
	r.pub.Close()
	r.sub.Close()
}
