// Package scenario replays authored step lists from YAML or JSON files.
//
// A scenario file looks like:
//
//	scenarios:
//	  - name: consciousness
//	    match: [conscious, mind]
//	    steps:
//	      - kind: reasoning
//	        label: "Defining {query}"
//	        confidence: "0.9"
//	      - kind: retrieval
//	        label: Recalling philosophy of mind
//
// "{query}" in labels and descriptions is replaced by the run query. Values are
// decoded weakly, so numbers may be written as strings.
package scenario

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// QueryPlaceholder is substituted with the run query.
const QueryPlaceholder = "{query}"

// Scenario is a named, ordered list of steps.
type Scenario struct {
	Name        string        `mapstructure:"name"`
	Description string        `mapstructure:"description"`
	Match       []string      `mapstructure:"match"`
	Steps       []domain.Step `mapstructure:"steps"`
}

// File is the decoded content of a scenario file.
type File struct {
	Scenarios []Scenario `mapstructure:"scenarios"`
}

// Lookup returns the scenario with the given name.
func (f *File) Lookup(name string) (Scenario, bool) {
	for _, s := range f.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Names lists scenario names in file order.
func (f *File) Names() []string {
	names := make([]string, len(f.Scenarios))
	for i, s := range f.Scenarios {
		names[i] = s.Name
	}
	return names
}

// Load reads and parses a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML or JSON scenario content and validates every step.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &f,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks scenario names and every step.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario %q", s.Name)
		}
		seen[s.Name] = true
		if len(s.Steps) == 0 {
			return fmt.Errorf("scenario %q has no steps", s.Name)
		}
		for j, step := range s.Steps {
			if err := step.Validate(); err != nil {
				return fmt.Errorf("scenario %q step %d: %w", s.Name, j+1, err)
			}
		}
	}
	return nil
}

// Source serves steps from a scenario file.
type Source struct {
	file   *File
	pinned string
	logger *slog.Logger
}

// Option configures the source.
type Option func(*Source)

// WithScenario always plays the named scenario regardless of the query.
func WithScenario(name string) Option {
	return func(s *Source) {
		s.pinned = name
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a source over f.
func New(f *File, opts ...Option) *Source {
	s := &Source{file: f, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.Named.
func (s *Source) Name() string {
	return "scenario"
}

// Select picks the scenario for query: the pinned one, else the first whose
// match terms occur in the query, else the first scenario of the file.
func (s *Source) Select(query string) (Scenario, error) {
	if s.pinned != "" {
		sc, ok := s.file.Lookup(s.pinned)
		if !ok {
			return Scenario{}, fmt.Errorf("%w: unknown scenario %q", domain.ErrSourceUnavailable, s.pinned)
		}
		return sc, nil
	}
	if len(s.file.Scenarios) == 0 {
		return Scenario{}, fmt.Errorf("%w: no scenarios loaded", domain.ErrSourceUnavailable)
	}

	q := strings.ToLower(query)
	for _, sc := range s.file.Scenarios {
		for _, term := range sc.Match {
			if term != "" && strings.Contains(q, strings.ToLower(term)) {
				return sc, nil
			}
		}
	}
	return s.file.Scenarios[0], nil
}

// GenerateSteps implements ports.StepSource.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		sc, err := s.Select(query)
		if err != nil {
			yield(domain.Step{}, err)
			return
		}
		s.logger.Debug("playing scenario", "scenario", sc.Name, "query", query)

		for i, step := range sc.Steps {
			if i >= desired {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(domain.Step{}, err)
				return
			}
			step.Label = strings.ReplaceAll(step.Label, QueryPlaceholder, query)
			step.Description = strings.ReplaceAll(step.Description, QueryPlaceholder, query)
			if !yield(step, nil) {
				return
			}
		}
	}
}
