package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
)

var availabilitySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "community_id": {
      "type": "string",
      "description": "Community identifier (e.g., 'sunset-ridge', 'downtown-lofts')"
    },
    "bedrooms": {
      "type": "integer",
      "description": "Number of bedrooms required"
    },
    "move_in_date": {
      "type": ["string", "null"],
      "description": "Optional desired move-in date in YYYY-MM-DD format. If provided, only shows units available by this date."
    }
  },
  "required": ["community_id", "bedrooms", "move_in_date"],
  "additionalProperties": false
}`)

var pricingSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "community_id": {
      "type": "string",
      "description": "Community identifier (e.g., 'sunset-ridge', 'downtown-lofts')"
    },
    "unit_id": {
      "type": "string",
      "description": "Unit code (e.g., 'B201', 'A102')"
    },
    "move_in_date": {
      "type": ["string", "null"],
      "description": "Optional move-in date in YYYY-MM-DD format for specials calculation"
    }
  },
  "required": ["community_id", "unit_id", "move_in_date"],
  "additionalProperties": false
}`)

var petPolicySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "community_id": {
      "type": "string",
      "description": "Community identifier (e.g., 'sunset-ridge', 'downtown-lofts')"
    },
    "pet_type": {
      "type": "string",
      "description": "Pet type in lowercase: cat, dog, bird, fish, rabbit, hamster"
    }
  },
  "required": ["community_id", "pet_type"],
  "additionalProperties": false
}`)

// AvailabilityArgs are the check_availability parameters.
type AvailabilityArgs struct {
	CommunityID string  `json:"community_id"`
	Bedrooms    int     `json:"bedrooms"`
	MoveInDate  *string `json:"move_in_date"`
}

// PricingArgs are the get_pricing parameters.
type PricingArgs struct {
	CommunityID string  `json:"community_id"`
	UnitID      string  `json:"unit_id"`
	MoveInDate  *string `json:"move_in_date"`
}

// PetPolicyArgs are the check_pet_policy parameters.
type PetPolicyArgs struct {
	CommunityID string `json:"community_id"`
	PetType     string `json:"pet_type"`
}

// Failure is the payload of any capability that could not answer.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// UnitSummary is a unit as reported by check_availability; it carries no pricing.
type UnitSummary struct {
	UnitCode           string  `json:"unit_code"`
	Bedrooms           int     `json:"bedrooms"`
	Bathrooms          float64 `json:"bathrooms"`
	AvailabilityStatus string  `json:"availability_status"`
	AvailableAt        *string `json:"available_at"`
}

// AvailabilityResult is the check_availability payload.
type AvailabilityResult struct {
	Success bool          `json:"success"`
	Units   []UnitSummary `json:"units"`
	Count   int           `json:"count"`
}

// AvailabilityFailure keeps the empty units list alongside the error.
type AvailabilityFailure struct {
	Failure
	Units []UnitSummary `json:"units"`
}

// PricingResult is the get_pricing payload.
type PricingResult struct {
	Success            bool    `json:"success"`
	UnitCode           string  `json:"unit_code"`
	Rent               float64 `json:"rent"`
	Specials           *string `json:"specials"`
	Bedrooms           int     `json:"bedrooms"`
	Bathrooms          float64 `json:"bathrooms"`
	AvailabilityStatus string  `json:"availability_status"`
	AvailableAt        *string `json:"available_at"`
	CommunityName      string  `json:"community_name"`
}

// PetPolicyResult is the check_pet_policy payload.
type PetPolicyResult struct {
	Success      bool     `json:"success"`
	PetType      string   `json:"pet_type"`
	Allowed      bool     `json:"allowed"`
	Fee          *float64 `json:"fee,omitempty"`
	Deposit      *float64 `json:"deposit,omitempty"`
	Notes        *string  `json:"notes"`
	Restrictions *string  `json:"restrictions,omitempty"`
}

func fail(msg string) Result {
	return Result{Payload: Failure{Success: false, Error: msg}}
}

func (r *Registry) invokeAvailability(ctx context.Context, raw json.RawMessage) Result {
	var args AvailabilityArgs
	if err := decodeArgs(raw, availabilitySchema, &args); err != nil {
		return Result{Payload: AvailabilityFailure{
			Failure: Failure{Error: "Invalid arguments for check_availability: " + err.Error()},
			Units:   []UnitSummary{},
		}}
	}
	if args.CommunityID == "" {
		return Result{Args: args, Payload: AvailabilityFailure{
			Failure: Failure{Error: "A community is required to check availability"},
			Units:   []UnitSummary{},
		}}
	}
	res, err := r.CheckAvailability(ctx, args)
	if err != nil {
		return Result{Args: args, Payload: AvailabilityFailure{
			Failure: Failure{Error: "Error retrieving units: " + err.Error()},
			Units:   []UnitSummary{},
		}}
	}
	return Result{Args: args, Payload: res, Success: true}
}

// CheckAvailability lists leasable units for the requested bedroom count.
func (r *Registry) CheckAvailability(ctx context.Context, args AvailabilityArgs) (*AvailabilityResult, error) {
	moveIn := args.MoveInDate
	if moveIn != nil && strings.TrimSpace(*moveIn) == "" {
		moveIn = nil
	}
	units, err := r.store.AvailableUnits(ctx, args.CommunityID, args.Bedrooms, moveIn)
	if err != nil {
		return nil, err
	}

	out := &AvailabilityResult{Success: true, Units: make([]UnitSummary, 0, len(units)), Count: len(units)}
	for _, u := range units {
		out.Units = append(out.Units, UnitSummary{
			UnitCode:           u.UnitCode,
			Bedrooms:           u.Bedrooms,
			Bathrooms:          u.Bathrooms,
			AvailabilityStatus: u.AvailabilityStatus,
			AvailableAt:        u.AvailableAt,
		})
	}
	return out, nil
}

func (r *Registry) invokePricing(ctx context.Context, raw json.RawMessage) Result {
	var args PricingArgs
	if err := decodeArgs(raw, pricingSchema, &args); err != nil {
		return fail("Invalid arguments for get_pricing: " + err.Error())
	}
	u, err := r.store.UnitPricing(ctx, args.CommunityID, args.UnitID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Args: args, Payload: Failure{Error: fmt.Sprintf("Unit '%s' not found in community '%s'", args.UnitID, args.CommunityID)}}
	}
	if err != nil {
		return Result{Args: args, Payload: Failure{Error: "Error retrieving pricing: " + err.Error()}}
	}
	return Result{Args: args, Success: true, Payload: PricingResult{
		Success:            true,
		UnitCode:           u.UnitCode,
		Rent:               u.Rent,
		Specials:           u.Specials,
		Bedrooms:           u.Bedrooms,
		Bathrooms:          u.Bathrooms,
		AvailabilityStatus: u.AvailabilityStatus,
		AvailableAt:        u.AvailableAt,
		CommunityName:      u.CommunityName,
	}}
}

func (r *Registry) invokePetPolicy(ctx context.Context, raw json.RawMessage) Result {
	var args PetPolicyArgs
	if err := decodeArgs(raw, petPolicySchema, &args); err != nil {
		return fail("Invalid arguments for check_pet_policy: " + err.Error())
	}
	policy, err := r.store.PetPolicy(ctx, args.CommunityID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Args: args, Payload: Failure{Error: "No pet policy found for this community"}}
	}
	if err != nil {
		return Result{Args: args, Payload: Failure{Error: "Error checking pet policy: " + err.Error()}}
	}
	return Result{Args: args, Success: true, Payload: lookupPet(policy, args.PetType)}
}

// lookupPet resolves a pet type against a policy, falling back to the
// "default" entry when the type is not listed.
func lookupPet(policy model.PetPolicy, petType string) PetPolicyResult {
	if rule, ok := policy[strings.ToLower(strings.TrimSpace(petType))]; ok {
		return PetPolicyResult{
			Success:      true,
			PetType:      petType,
			Allowed:      rule.Allowed,
			Fee:          rule.Fee,
			Deposit:      rule.Deposit,
			Notes:        rule.Notes,
			Restrictions: rule.Restrictions,
		}
	}

	def := policy["default"]
	notes := def.Notes
	if notes == nil {
		fallback := fmt.Sprintf("No specific policy for %s. Contact office for details.", petType)
		notes = &fallback
	}
	return PetPolicyResult{
		Success: true,
		PetType: petType,
		Allowed: def.Allowed,
		Notes:   notes,
	}
}
