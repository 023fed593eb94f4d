package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// Common patterns for NewPIIMiddleware.
const (
	EmailPattern = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`
	PhonePattern = `\+?\d[\d\s().-]{7,}\d`
)

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns
// in queries, labels, descriptions and errors before a run is archived.
// It returns an error for an invalid pattern.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, record *domain.RunRecord) error {
	// Mask a clone; the live session keeps the original text.
	cloned := record.Clone()
	cloned.Query = m.mask(cloned.Query)
	cloned.Err = m.mask(cloned.Err)
	for i := range cloned.Snapshot.Nodes {
		n := &cloned.Snapshot.Nodes[i]
		n.Label = m.mask(n.Label)
		n.Description = m.mask(n.Description)
	}
	for i := range cloned.Log {
		cloned.Log[i].Label = m.mask(cloned.Log[i].Label)
	}
	return m.next.Save(ctx, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
