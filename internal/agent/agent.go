// Package agent runs a conversation turn against the completion service:
// the intent router, the booking dialogue and the tool-calling contract they
// share.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/llm"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/prompts"
	"github.com/capitalize-ai/leasing-assistant/internal/tools"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
	"github.com/capitalize-ai/leasing-assistant/pkg/tracing"
)

// Generation defaults.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 150
)

// ErrSchemaViolation is returned when a structured completion does not match
// the booking response schema.
var ErrSchemaViolation = errors.New("completion does not match response schema")

// Prompt is a top-level pipeline step.
type Prompt interface {
	Name() string
	Execute(ctx context.Context, a *Agent, s *Session) (*model.BookingResponse, error)
}

// Session is the running state of one turn.
type Session struct {
	RequestID string
	Messages  []llm.ChatMessage
	// Calls holds every capability result of the turn in request order.
	Calls []tools.Result

	log *logger.Logger
}

// Agent holds the model configuration and the capabilities offered to it.
type Agent struct {
	client      llm.Client
	registry    *tools.Registry
	prompts     *prompts.Set
	model       string
	temperature float64
	maxTokens   int
	logger      *logger.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel sets the completion model.
func WithModel(name string) Option {
	return func(a *Agent) {
		if name != "" {
			a.model = name
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithMaxTokens bounds the output length of each completion.
func WithMaxTokens(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer sets the tracer used for completion and capability spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Agent) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithClock replaces time.Now, which drives proposed tour times.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an agent.
func New(client llm.Client, registry *tools.Registry, set *prompts.Set, opts ...Option) *Agent {
	a := &Agent{
		client:    client,
		registry:  registry,
		prompts:   set,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		logger:    logger.Nop(),
		tracer:    tracing.Tracer("agent"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prompts returns the template set in use.
func (a *Agent) Prompts() *prompts.Set { return a.prompts }

// Run executes p over the system prompt and history. System-role entries in
// history are dropped.
func (a *Agent) Run(ctx context.Context, p Prompt, history []model.Message, requestID string) (*model.BookingResponse, error) {
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("prompt", p.Name()),
		attribute.String("request_id", requestID),
	))
	defer span.End()

	s := &Session{
		RequestID: requestID,
		Messages:  make([]llm.ChatMessage, 0, len(history)+6),
		log:       a.logger.WithRequest(requestID),
	}
	s.Messages = append(s.Messages, llm.ChatMessage{Role: llm.RoleSystem, Content: a.prompts.System})
	for _, m := range history {
		if m.Role == model.RoleSystem {
			continue
		}
		s.Messages = append(s.Messages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	start := time.Now()
	out, err := p.Execute(ctx, a, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("turn failed", zap.String("prompt", p.Name()), zap.Error(err))
		return nil, err
	}

	s.log.Info("turn complete",
		zap.String("action", string(out.Action)),
		zap.Int("capability_calls", len(s.Calls)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

type completionOptions struct {
	tools      []llm.Tool
	toolChoice string
	schema     *llm.ResponseSchema
}

func (a *Agent) complete(ctx context.Context, s *Session, stage string, opts completionOptions) (*llm.CompletionResponse, error) {
	ctx, span := a.tracer.Start(ctx, "agent.complete", trace.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("model", a.model),
	))
	defer span.End()

	req := &llm.CompletionRequest{
		Model:          a.model,
		Messages:       s.Messages,
		MaxTokens:      a.maxTokens,
		Temperature:    a.temperature,
		Tools:          opts.tools,
		ToolChoice:     opts.toolChoice,
		ResponseSchema: opts.schema,
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordCompletion(a.model, stage, "error", elapsed.Seconds(), 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s completion: %w", stage, err)
	}

	metrics.RecordCompletion(a.model, stage, "success", elapsed.Seconds(), resp.TokensIn, resp.TokensOut)
	span.SetAttributes(
		attribute.Int("tokens_in", resp.TokensIn),
		attribute.Int("tokens_out", resp.TokensOut),
		attribute.Int("tool_calls", len(resp.ToolCalls)),
	)
	s.log.Debug("completion",
		zap.String("stage", stage),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}
