// Package messaging consumes triggering events from NATS JetStream
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/anudishu/promote-cleanup/internal/logger"
)

const (
	// MaxDeliver bounds redeliveries of a message whose run keeps failing
	MaxDeliver = 5
	// DefaultAckWait is used when Subscribe is given a non-positive ack wait
	DefaultAckWait = 2 * time.Minute
)

// HandlerFunc processes one message body. A nil error acks the message, anything else naks it.
type HandlerFunc func(ctx context.Context, data []byte) error

// Bus wraps a NATS JetStream connection for publishing and consuming events
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a Bus connected to the provided NATS endpoint
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open jetstream context: %w", err)
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains and shuts down the underlying NATS connection
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// EnsureStream creates the stream capturing subjects unless it already exists
func (b *Bus) EnsureStream(name string, subjects ...string) error {
	if b == nil {
		return errors.New("nil bus")
	}
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if _, err := b.js.AddStream(&nats.StreamConfig{Name: name, Subjects: subjects}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	logger.Infof("Created stream %s for %v", name, subjects)
	return nil
}

// Publish encodes v as JSON and publishes it to the given subject
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	return err
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe creates a durable consumer on subj and invokes fn for each message. The server
// redelivers a message that is neither acked nor marked in progress within ackWait, so a
// running handler reports progress every half of ackWait. The subscription is drained when
// ctx is done.
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, ackWait time.Duration, fn HandlerFunc) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}
	if ackWait <= 0 {
		ackWait = DefaultAckWait
	}

	handler := func(msg *nats.Msg) {
		process(ctx, msg, msg.Data, ackWait/2, fn)
	}

	sub, err := b.js.Subscribe(subj, handler,
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(ackWait),
		nats.MaxDeliver(MaxDeliver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subj, err)
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

// acker is the part of *nats.Msg used to settle a delivery
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	InProgress(opts ...nats.AckOpt) error
}

// process runs fn for one delivery, marking it in progress every interval until fn returns,
// then settles it.
func process(ctx context.Context, msg acker, data []byte, interval time.Duration, fn HandlerFunc) {
	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		keepAlive(done, msg, interval)
	}()

	err := fn(handlerCtx, data)
	close(done)
	wg.Wait()
	settle(msg, err)
}

func keepAlive(done <-chan struct{}, msg acker, interval time.Duration) {
	if interval <= 0 {
		<-done
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := msg.InProgress(); err != nil {
				logger.Warnf("Failed to extend ack deadline: %v", err)
			}
		}
	}
}

func settle(msg acker, err error) {
	if err != nil {
		if nerr := msg.Nak(); nerr != nil {
			logger.Warnf("Failed to nak message: %v", nerr)
		}
		return
	}
	if aerr := msg.Ack(); aerr != nil {
		logger.Warnf("Failed to ack message: %v", aerr)
	}
}
