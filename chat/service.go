// Package chat is the synchronous chat front-end shared by the HTTP server
// and the terminal REPL.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KamdynS/go-swarm/agent/core"
	"github.com/KamdynS/go-swarm/memory"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/router"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Span names of the two front-ends.
const (
	SpanCodeBased = "code_based_agent"
	SpanSwarm     = "openai_swarms_agent"
)

// AttrSessionID is the span attribute holding the chat session.
const AttrSessionID = "session.id"

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Service answers chat messages and keeps per-session history.
type Service struct {
	router   router.Router
	store    memory.ConversationStore
	spanName string
	// historyLimit caps the messages replayed to the router.
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit replays at most n earlier messages to the router.
func WithHistoryLimit(n int) Option {
	return func(s *Service) { s.historyLimit = n }
}

// NewService creates a chat service. spanName names the top-level span of
// every exchange, e.g. SpanSwarm.
func NewService(r router.Router, store memory.ConversationStore, spanName string, opts ...Option) *Service {
	s := &Service{router: r, store: store, spanName: spanName}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionID returns a fresh session id.
func NewSessionID() string { return uuid.NewString() }

// Respond routes message with the session's history and stores the exchange.
func (s *Service) Respond(ctx context.Context, sessionID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	logger := log.With().Str("session_id", sessionID).Logger()
	logger.Debug().Str("message", message).Msg("received message")

	start := time.Now()
	labels := map[string]string{obs.LabelComponent: "chat", obs.LabelName: s.spanName}
	obs.MetricsImpl.IncrementRequests(labels)
	defer func() { obs.MetricsImpl.RecordLatency(time.Since(start), labels) }()

	history, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	history = memory.Tail(history, s.historyLimit)

	reply, err := obs.Trace(ctx, s.spanName, obs.SpanKindAgent, message, func(ctx context.Context) (string, error) {
		return s.router.Route(ctx, router.Request{
			Query:   message,
			History: toCore(history),
			Carrier: obs.InjectCarrier(ctx),
		})
	}, obs.WithAttribute(AttrSessionID, sessionID))
	if err != nil {
		obs.MetricsImpl.RecordError("chat_error", labels)
		logger.Error().Err(err).Msg("chat failed")
		return "", err
	}

	if err := s.store.AppendMessages(ctx, sessionID,
		memory.NewMessage("user", message),
		memory.NewMessage("assistant", reply),
	); err != nil {
		logger.Warn().Err(err).Msg("failed to store exchange")
	}
	logger.Debug().Str("reply", reply).Msg("agent response")
	return reply, nil
}

// History returns the stored messages of a session.
func (s *Service) History(ctx context.Context, sessionID string) ([]core.Message, error) {
	msgs, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toCore(msgs), nil
}

// Reset forgets a session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.store.ClearSession(ctx, sessionID)
}

func toCore(msgs []memory.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, core.Message{Role: m.Role, Content: m.Content, Meta: m.Meta})
	}
	return out
}
