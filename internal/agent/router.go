package agent

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/llm"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/prompts"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

// Intent is a router classification label.
type Intent string

const (
	IntentMalicious Intent = "MALICIOUS"
	IntentBooking   Intent = "BOOKING"
)

// TurnContext is what the pipeline knows about the lead besides the message.
type TurnContext struct {
	CommunityID string
	MoveInDate  string
	Bedrooms    *int
	Name        string
	Email       string
}

func (c TurnContext) fields() map[string]any {
	f := map[string]any{
		"community_id": c.CommunityID,
		"move_in_date": c.MoveInDate,
		"name":         c.Name,
		"email":        c.Email,
	}
	if c.Bedrooms != nil {
		f["bedrooms"] = *c.Bedrooms
	}
	return f
}

// Router classifies the message and either short-circuits it or hands it to
// the booking dialogue.
type Router struct {
	Query   string
	Context TurnContext
	// FailClosed treats output that is not clearly BOOKING as MALICIOUS.
	FailClosed bool
}

// NewRouter creates the top-level prompt for one turn.
func NewRouter(query string, tc TurnContext, failClosed bool) *Router {
	return &Router{Query: query, Context: tc, FailClosed: failClosed}
}

// Name implements Prompt.
func (r *Router) Name() string { return "router" }

// Execute implements Prompt.
func (r *Router) Execute(ctx context.Context, a *Agent, s *Session) (*model.BookingResponse, error) {
	ctxJSON, err := prompts.ContextJSON(r.Context.fields())
	if err != nil {
		return nil, err
	}
	instruction, err := a.prompts.RenderRouter(prompts.RouterData{Query: r.Query, Context: ctxJSON})
	if err != nil {
		return nil, err
	}

	res, err := a.runStep(ctx, s, Step{Kind: StepSimple, Name: "router", Instruction: instruction})
	if err != nil {
		return nil, err
	}

	intent := ClassifyIntent(res.Text, r.FailClosed)
	metrics.RouterDecisionsTotal.WithLabelValues(string(intent)).Inc()
	s.log.Info("routed", zap.String("intent", string(intent)))
	s.Messages = append(s.Messages, llm.ChatMessage{
		Role:    llm.RoleAssistant,
		Content: "[ROUTING: " + string(intent) + "]",
	})

	if intent == IntentMalicious {
		return &model.BookingResponse{
			Reply:  strings.TrimSpace(a.prompts.SecurityReply),
			Action: model.ActionHandoffHuman,
		}, nil
	}

	booking := &BookingPrompt{Query: r.Query, Context: r.Context}
	return booking.Execute(ctx, a, s)
}

// ClassifyIntent parses the router output. MALICIOUS wins only when it is the
// sole label present; with failClosed, BOOKING wins only when it is.
func ClassifyIntent(raw string, failClosed bool) Intent {
	up := strings.ToUpper(raw)
	malicious := strings.Contains(up, string(IntentMalicious))
	booking := strings.Contains(up, string(IntentBooking))

	if failClosed {
		if booking && !malicious {
			return IntentBooking
		}
		return IntentMalicious
	}
	if malicious && !booking {
		return IntentMalicious
	}
	return IntentBooking
}

func bedroomsText(b *int) string {
	if b == nil {
		return ""
	}
	return strconv.Itoa(*b)
}
