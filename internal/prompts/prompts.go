// Package prompts holds the versioned instruction templates used by the
// conversation pipeline. Defaults are embedded; a YAML file can override any
// of them without a rebuild.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Set is a loaded, parsed collection of templates.
type Set struct {
	Version        string `yaml:"version"`
	System         string `yaml:"system"`
	SecurityReply  string `yaml:"security_reply"`
	NoAvailability string `yaml:"no_availability"`
	Router         string `yaml:"router"`
	Booking        string `yaml:"booking"`

	router         *template.Template
	booking        *template.Template
	noAvailability *template.Template
}

// RouterData feeds the classification template.
type RouterData struct {
	Query string
	// Context is the indented JSON of the non-null context fields, or empty.
	Context string
}

// BookingData feeds the booking instruction template.
type BookingData struct {
	CommunityID string
	Bedrooms    string
	Name        string
}

// Default returns the embedded template set.
func Default() (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(defaultTemplates, &s); err != nil {
		return nil, fmt.Errorf("decoding embedded templates: %w", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// MustDefault is Default for callers that cannot proceed without templates.
func MustDefault() *Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads the embedded defaults and overlays the templates found in path.
// An empty path yields the defaults.
func Load(path string) (*Set, error) {
	s, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding templates %s: %w", path, err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) compile() error {
	for name, text := range map[string]string{
		"system":          s.System,
		"security_reply":  s.SecurityReply,
		"no_availability": s.NoAvailability,
		"router":          s.Router,
		"booking":         s.Booking,
	} {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("template %q is empty", name)
		}
	}

	var err error
	if s.router, err = parse("router", s.Router); err != nil {
		return err
	}
	if s.booking, err = parse("booking", s.Booking); err != nil {
		return err
	}
	if s.noAvailability, err = parse("no_availability", s.NoAvailability); err != nil {
		return err
	}
	return nil
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", t.Name(), err)
	}
	return b.String(), nil
}

// RenderRouter builds the classification instruction.
func (s *Set) RenderRouter(d RouterData) (string, error) {
	return execute(s.router, d)
}

// RenderBooking builds the booking dialogue instruction.
func (s *Set) RenderBooking(d BookingData) (string, error) {
	return execute(s.booking, d)
}

// RenderNoAvailability builds the fixed zero-availability handoff reply.
func (s *Set) RenderNoAvailability(bedrooms int, community string) (string, error) {
	return execute(s.noAvailability, struct {
		Bedrooms  int
		Community string
	}{bedrooms, community})
}

// ContextJSON renders the non-empty context fields as indented JSON, or ""
// when none are set.
func ContextJSON(fields map[string]any) (string, error) {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return "", nil
	}
	b, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding context: %w", err)
	}
	return string(b), nil
}
