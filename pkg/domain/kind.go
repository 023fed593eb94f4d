package domain

import (
	"fmt"
	"strings"
)

// Kind classifies the role of a node in the reasoning graph.
type Kind string

const (
	KindInput     Kind = "input"
	KindReasoning Kind = "reasoning"
	KindRetrieval Kind = "retrieval"
	KindData      Kind = "data"
	KindDecision  Kind = "decision"
	KindError     Kind = "error"
)

var kinds = []Kind{KindInput, KindReasoning, KindRetrieval, KindData, KindDecision, KindError}

// Kinds returns the closed kind set in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid reports whether k belongs to the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindInput, KindReasoning, KindRetrieval, KindData, KindDecision, KindError:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a case-insensitive name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// UnmarshalText lets Kind be decoded from JSON and YAML while rejecting unknown values.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k), nil
}
