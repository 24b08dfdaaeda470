package instrument

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"qmunlock/internal/logging"
)

// Sink prints every script message verbatim and logs a structured summary.
// It never returns an error and never panics; a failing writer or logger
// cannot abort an in-flight conversion.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
	count  atomic.Int64
}

// NewSink constructs a sink writing to out. A nil out discards the verbatim copy.
func NewSink(out io.Writer, logger *slog.Logger) *Sink {
	if out == nil {
		out = io.Discard
	}
	return &Sink{out: out, logger: logging.NewComponentLogger(logger, "script")}
}

// scriptMessage is the envelope the runtime wraps around send() and uncaught
// script errors. Unknown shapes are still printed verbatim.
type scriptMessage struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Description string          `json:"description"`
	Stack       string          `json:"stack"`
}

// OnMessage implements MessageHandler.
func (s *Sink) OnMessage(raw string, data []byte) {
	defer func() {
		_ = recover()
	}()
	s.count.Add(1)

	s.writeVerbatim(raw)

	var msg scriptMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		s.logger.Debug("script message", logging.Int("data_bytes", len(data)))
		return
	}
	if msg.Type == "error" {
		s.logger.Warn("script reported an error",
			logging.String("description", msg.Description),
			logging.String("stack", firstLine(msg.Stack)),
			logging.String(logging.FieldEventType, "script_error"),
		)
		return
	}
	s.logger.Debug("script message",
		logging.String("type", msg.Type),
		logging.Int("payload_bytes", len(msg.Payload)),
		logging.Int("data_bytes", len(data)),
	)
}

func (s *Sink) writeVerbatim(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, "- %s\n", raw)
}

// Count returns how many messages have been received.
func (s *Sink) Count() int64 {
	return s.count.Load()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
