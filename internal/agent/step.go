package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/leasing-assistant/internal/llm"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/tools"
)

// StepKind selects how a step talks to the model.
type StepKind int

const (
	// StepSimple issues one completion without tools and yields raw text.
	StepSimple StepKind = iota
	// StepTool offers the capabilities, runs at most one round of calls and
	// yields a structured booking response.
	StepTool
)

func (k StepKind) String() string {
	switch k {
	case StepSimple:
		return "simple"
	case StepTool:
		return "tool"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is one instruction sent to the model.
type Step struct {
	Kind        StepKind
	Name        string
	Instruction string
}

// StepResult carries Text for simple steps and Outcome for tool steps.
type StepResult struct {
	Text    string
	Outcome *model.BookingResponse
}

func (a *Agent) runStep(ctx context.Context, s *Session, step Step) (StepResult, error) {
	s.Messages = append(s.Messages, llm.ChatMessage{Role: llm.RoleUser, Content: step.Instruction})

	switch step.Kind {
	case StepSimple:
		resp, err := a.complete(ctx, s, step.Name, completionOptions{})
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Text: resp.Content}, nil
	case StepTool:
		out, err := a.runToolStep(ctx, s, step)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Outcome: out}, nil
	default:
		return StepResult{}, fmt.Errorf("step %q: unsupported kind %s", step.Name, step.Kind)
	}
}

func (a *Agent) runToolStep(ctx context.Context, s *Session, step Step) (*model.BookingResponse, error) {
	decls := a.registry.Declarations()

	first, err := a.complete(ctx, s, step.Name+".tools", completionOptions{
		tools:      decls,
		toolChoice: llm.ToolChoiceAuto,
	})
	if err != nil {
		return nil, err
	}

	if len(first.ToolCalls) > 0 {
		for _, call := range first.ToolCalls {
			if !a.registry.Has(call.Name) {
				return nil, fmt.Errorf("step %q: %w: %s", step.Name, tools.ErrUnknownCapability, call.Name)
			}
		}
		s.Messages = append(s.Messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   first.Content,
			ToolCalls: first.ToolCalls,
		})

		results, err := a.dispatch(ctx, s, first.ToolCalls)
		if err != nil {
			return nil, err
		}
		for i, call := range first.ToolCalls {
			s.Messages = append(s.Messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    results[i].JSON(),
			})
		}
		s.Calls = append(s.Calls, results...)
	}

	// Tools stay declared so providers accept the tool turns in history.
	final, err := a.complete(ctx, s, step.Name+".final", completionOptions{
		tools:      decls,
		toolChoice: llm.ToolChoiceNone,
		schema: &llm.ResponseSchema{
			Name:   "booking_response",
			Schema: model.BookingResponseSchema,
			Strict: true,
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := model.ParseBookingResponse(final.Content)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w: %v", step.Name, ErrSchemaViolation, err)
	}
	return out, nil
}

// dispatch runs one round of capability calls concurrently. Results are
// returned in request order.
func (a *Agent) dispatch(ctx context.Context, s *Session, calls []llm.ToolCall) ([]tools.Result, error) {
	results := make([]tools.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			ctx, span := a.tracer.Start(gctx, "agent.capability", trace.WithAttributes(
				attribute.String("capability", call.Name),
			))
			defer span.End()

			start := time.Now()
			res, err := a.registry.Invoke(ctx, call.Name, call.Arguments)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetAttributes(attribute.Bool("success", res.Success))
			s.log.Info("capability call",
				zap.String("capability", call.Name),
				zap.String("call_id", call.ID),
				zap.Bool("success", res.Success),
				zap.Duration("duration", time.Since(start)),
			)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
