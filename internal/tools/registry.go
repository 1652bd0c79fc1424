// Package tools declares the leasing capabilities offered to the model and
// binds them to the durable store.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/leasing-assistant/internal/llm"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

// Capability names.
const (
	CheckAvailability = "check_availability"
	GetPricing        = "get_pricing"
	CheckPetPolicy    = "check_pet_policy"
)

// ErrUnknownCapability is returned when a capability name is not registered.
var ErrUnknownCapability = errors.New("unknown capability")

// LeasingStore is the data access the capabilities need.
type LeasingStore interface {
	AvailableUnits(ctx context.Context, communityID string, bedrooms int, moveInDate *string) ([]model.Unit, error)
	UnitPricing(ctx context.Context, communityID, unitCode string) (*model.Unit, error)
	PetPolicy(ctx context.Context, communityID string) (model.PetPolicy, error)
}

// Result is the outcome of one invocation. Payload is one of the *Result
// types of this package; Args holds the decoded parameters when they parsed.
type Result struct {
	Name    string
	Args    any
	Payload any
	Success bool
}

// JSON encodes the payload the way it is handed back to the model.
func (r Result) JSON() string {
	b, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, "Could not encode result: "+err.Error())
	}
	return string(b)
}

// Capability is a named, schema-typed operation bound to an implementation.
type Capability struct {
	Name        string
	Description string
	Parameters  json.RawMessage

	invoke func(ctx context.Context, raw json.RawMessage) Result
}

// Registry holds the fixed set of leasing capabilities.
type Registry struct {
	store        LeasingStore
	capabilities map[string]*Capability
	order        []string
}

// NewRegistry binds the three leasing capabilities to store.
func NewRegistry(store LeasingStore) *Registry {
	r := &Registry{
		store:        store,
		capabilities: make(map[string]*Capability),
	}
	r.register(&Capability{
		Name:        CheckAvailability,
		Description: "Check availability for a community matching bedroom count and optional move-in date. Returns available units with unit codes for reference. Use this for availability questions only.",
		Parameters:  availabilitySchema,
		invoke:      r.invokeAvailability,
	})
	r.register(&Capability{
		Name:        GetPricing,
		Description: "Get pricing information for a specific unit. Use this when users ask about rent, cost, pricing, or specials for a specific unit.",
		Parameters:  pricingSchema,
		invoke:      r.invokePricing,
	})
	r.register(&Capability{
		Name:        CheckPetPolicy,
		Description: "Check if a specific pet type is allowed. Valid pet types: cat, dog, bird, fish, rabbit, hamster. Use lowercase.",
		Parameters:  petPolicySchema,
		invoke:      r.invokePetPolicy,
	})
	return r
}

func (r *Registry) register(c *Capability) {
	r.capabilities[c.Name] = c
	r.order = append(r.order, c.Name)
}

// Has reports whether name is a registered capability.
func (r *Registry) Has(name string) bool {
	_, ok := r.capabilities[name]
	return ok
}

// Capabilities returns the registered capabilities in declaration order.
func (r *Registry) Capabilities() []*Capability {
	out := make([]*Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.capabilities[name])
	}
	return out
}

// Declarations returns the tool declarations offered to the model.
func (r *Registry) Declarations() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.order))
	for _, c := range r.Capabilities() {
		out = append(out, llm.Tool{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.Parameters,
			Strict:      true,
		})
	}
	return out
}

// Invoke runs the named capability with JSON-encoded arguments. Lookup and
// argument failures are reported inside the Result; the only error is
// ErrUnknownCapability.
func (r *Registry) Invoke(ctx context.Context, name, args string) (Result, error) {
	c, ok := r.capabilities[name]
	if !ok {
		return Result{Name: name}, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}

	raw := json.RawMessage(args)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	start := time.Now()
	res := c.invoke(ctx, raw)
	res.Name = name
	metrics.RecordCapability(name, res.Success, time.Since(start).Seconds())
	return res, nil
}

// decodeArgs decodes raw into dst. Unknown fields are rejected, as is any
// parameter schema lists as required that the call left out; an explicit
// null counts as supplied.
func decodeArgs(raw, schema json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return err
	}
	for _, name := range requiredParams(schema) {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("missing required parameter %s", name)
		}
	}
	return nil
}

func requiredParams(schema json.RawMessage) []string {
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil
	}
	return s.Required
}
