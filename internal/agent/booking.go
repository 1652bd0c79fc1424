package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/prompts"
	"github.com/capitalize-ai/leasing-assistant/internal/tools"
)

// TourTimeLayout is the format of a proposed tour time.
const TourTimeLayout = "2006-01-02T15:04:05"

// BookingPrompt is the tool-capable leasing dialogue.
type BookingPrompt struct {
	Query   string
	Context TurnContext
}

// Name implements Prompt.
func (b *BookingPrompt) Name() string { return "booking" }

// Execute implements Prompt.
func (b *BookingPrompt) Execute(ctx context.Context, a *Agent, s *Session) (*model.BookingResponse, error) {
	instruction, err := a.prompts.RenderBooking(prompts.BookingData{
		CommunityID: b.Context.CommunityID,
		Bedrooms:    bedroomsText(b.Context.Bedrooms),
		Name:        b.Context.Name,
	})
	if err != nil {
		return nil, err
	}

	res, err := a.runStep(ctx, s, Step{Kind: StepTool, Name: "booking", Instruction: instruction})
	if err != nil {
		return nil, err
	}
	out := res.Outcome

	if args, ok := emptyAvailability(s.Calls); ok {
		reply, err := a.prompts.RenderNoAvailability(args.Bedrooms, args.CommunityID)
		if err != nil {
			return nil, err
		}
		if out.Action != model.ActionHandoffHuman || out.Reply != reply {
			s.log.Info("no availability, handing off",
				zap.String("community_id", args.CommunityID),
				zap.Int("bedrooms", args.Bedrooms),
				zap.String("model_action", string(out.Action)),
			)
		}
		out.Reply = reply
		out.Action = model.ActionHandoffHuman
	}

	if out.Action == model.ActionProposeTour {
		t := TourTime(a.now())
		out.ProposeTime = &t
	} else {
		out.ProposeTime = nil
	}
	return out, nil
}

// TourTime returns 11:00 on the calendar day after now, in now's location.
func TourTime(now time.Time) string {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 11, 0, 0, 0, now.Location()).Format(TourTimeLayout)
}

// emptyAvailability reports the arguments of the last successful
// availability lookup when it found no units.
func emptyAvailability(calls []tools.Result) (tools.AvailabilityArgs, bool) {
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		if c.Name != tools.CheckAvailability || !c.Success {
			continue
		}
		res, ok := c.Payload.(*tools.AvailabilityResult)
		if !ok {
			return tools.AvailabilityArgs{}, false
		}
		args, ok := c.Args.(tools.AvailabilityArgs)
		if !ok || res.Count != 0 {
			return tools.AvailabilityArgs{}, false
		}
		return args, true
	}
	return tools.AvailabilityArgs{}, false
}
