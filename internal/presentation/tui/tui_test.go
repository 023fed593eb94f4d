package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepPrinter_PrintStep(t *testing.T) {
	var buf bytes.Buffer
	p := NewStepPrinter(&buf, termenv.WithProfile(termenv.Ascii))

	p.PrintStep(&domain.StepEvent{
		Node:  domain.Node{ID: "a", Label: "Query: why", Kind: domain.KindInput, Confidence: 1},
		Entry: domain.LogEntry{StepIndex: 0, Kind: domain.KindInput, Label: "Query: why"},
	})
	p.PrintStep(&domain.StepEvent{
		Node:  domain.Node{ID: "b", Label: "Step 1: think", Kind: domain.KindReasoning, Confidence: 0.9},
		Entry: domain.LogEntry{StepIndex: 1, Kind: domain.KindReasoning, Label: "Step 1: think"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "◆ input")
	assert.Contains(t, lines[0], "Query: why")
	assert.NotContains(t, lines[0], "%")
	assert.Contains(t, lines[1], "● reasoning")
	assert.Contains(t, lines[1], "(90%)")
	assert.NotContains(t, buf.String(), "\x1b[", "ascii profile must not emit escapes")
}

func TestStepPrinter_PrintResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewStepPrinter(&buf, termenv.WithProfile(termenv.Ascii))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p.PrintResult(domain.RunResult{
		Status:     domain.StatusFailed,
		Applied:    2,
		Err:        "source unavailable",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	})
	assert.Equal(t, "FAILED  2 steps in 1.5s  source unavailable\n", buf.String())
}

func TestSummary(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	record := &domain.RunRecord{
		SessionID:  "s1",
		RunID:      "r1",
		Query:      "a|b",
		Status:     domain.StatusCompleted,
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Snapshot: domain.Snapshot{Nodes: []domain.Node{
			{ID: "n0", Label: "Query: a|b", Kind: domain.KindInput, Confidence: 1, Seq: 0},
			{ID: "n1", Label: "Step 1: x", Kind: domain.KindData, Confidence: 0.8, Seq: 1},
		}},
	}

	md := Summary(record)
	assert.Contains(t, md, `# a\|b`)
	assert.Contains(t, md, "**Run:** `r1`")
	assert.Contains(t, md, "**Duration:** 2s")
	assert.Contains(t, md, `| 1 | data | Step 1: x | 0.80 |`)
	assert.NotContains(t, md, "**Error:**")

	render, err := NewRenderer("notty", 80)
	require.NoError(t, err)
	out, err := render(md)
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1: x")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "\n"), 6)
}
