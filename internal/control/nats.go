package control

import (
	"context"
	"sync"

	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
	"github.com/nats-io/nats.go"
)

// NATSTransport delivers control messages from a NATS server.
type NATSTransport struct {
	nc     *nats.Conn
	logger logger.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

var _ Transport = (*NATSTransport)(nil)

// DialNATS connects to the server at url. Callers treat a failure here as fatal.
func DialNATS(url string, log logger.Logger, opts ...nats.Option) (*NATSTransport, error) {
	base := []nats.Option{
		nats.Name("ircapture"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	}

	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, errors.New().Wrap(ErrConnect, err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS client connected successfully")

	return &NATSTransport{
		nc:     nc,
		logger: log,
	}, nil
}

func (t *NATSTransport) Subscribe(pattern string, handler func(Message)) error {
	sub, err := t.nc.Subscribe(pattern, func(m *nats.Msg) {
		handler(Message{Topic: m.Subject, Payload: m.Data})
	})
	if err != nil {
		return errors.New().Wrap(ErrSubscribe, err)
	}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	return nil
}

// Close unsubscribes and closes the connection. Pending messages are dropped.
func (t *NATSTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			t.logger.Debug().Err(err).Str("subject", sub.Subject).Msg("Failed to unsubscribe")
		}
	}

	t.nc.Close()
	return ctx.Err()
}
