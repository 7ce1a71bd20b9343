package control

import "context"

// Control subjects, matched exactly and case-sensitively.
const (
	TopicStartCapture = "test.start_capture"
	TopicStopCapture  = "test.stop_capture"
	TopicShutdown     = "test.shutdown"

	// DefaultPattern covers every control subject.
	DefaultPattern = "test.*"
)

// Message is one inbound control message.
type Message struct {
	Topic   string
	Payload []byte
}

// Transport is a pub/sub connection owned by the Channel.
type Transport interface {
	// Subscribe delivers every message matching pattern to handler, one
	// at a time and in arrival order.
	Subscribe(pattern string, handler func(Message)) error
	Close(ctx context.Context) error
}

// Engine is the capture lifecycle driven by control messages.
type Engine interface {
	Start()
	Stop()
}

// EngineFactory builds the engine when the first start message arrives.
type EngineFactory func() (Engine, error)
