package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/cartography/pkg/domain"
)

var (
	stepLine = regexp.MustCompile(`(?i)^step\s*(\d+)\s*[:.)\-]\s*(.*)$`)
	kindTag  = regexp.MustCompile(`^\[([A-Za-z]+)\]\s*(.*)$`)
)

// Keyword hints used when a line carries no usable [kind] tag.
// Checked in order; the first hit wins.
var kindHints = []struct {
	kind  domain.Kind
	words []string
}{
	{domain.KindDecision, []string{"conclu", "decide", "decision", "therefore", "final answer", "recommend"}},
	{domain.KindRetrieval, []string{"recall", "retriev", "search", "look up", "remember", "fetch", "consult"}},
	{domain.KindData, []string{"data", "statistic", "measure", "number", "evidence", "figure"}},
}

// ParseSteps extracts at most desired steps from a model response.
// Lines of the form "Step N: ..." are preferred; when none are present every
// non-empty line counts as a step.
func ParseSteps(text string, desired int) []domain.Step {
	var tagged, plain []string
	for _, line := range strings.Split(text, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if m := stepLine.FindStringSubmatch(line); m != nil {
			if body := strings.TrimSpace(m[2]); body != "" {
				tagged = append(tagged, body)
			}
			continue
		}
		plain = append(plain, line)
	}

	bodies := tagged
	if len(bodies) == 0 {
		bodies = plain
	}
	if len(bodies) > desired {
		bodies = bodies[:max(desired, 0)]
	}

	steps := make([]domain.Step, 0, len(bodies))
	for i, body := range bodies {
		steps = append(steps, parseBody(i+1, body))
	}
	return steps
}

func parseBody(n int, body string) domain.Step {
	kind := domain.Kind("")
	if m := kindTag.FindStringSubmatch(body); m != nil {
		if k, err := domain.ParseKind(m[1]); err == nil && k != domain.KindInput && k != domain.KindError {
			kind = k
		}
		body = strings.TrimSpace(m[2])
	}
	if kind == "" {
		kind = Classify(body)
	}

	title := body
	for _, sep := range []string{" — ", " - ", ": "} {
		if before, _, ok := strings.Cut(body, sep); ok && before != "" {
			title = before
			break
		}
	}

	return domain.Step{
		Kind:        kind,
		Label:       fmt.Sprintf("Step %d: %s", n, title),
		Description: body,
	}
}

// Classify guesses a kind from keywords, defaulting to reasoning.
func Classify(text string) domain.Kind {
	lower := strings.ToLower(text)
	for _, hint := range kindHints {
		for _, w := range hint.words {
			if strings.Contains(lower, w) {
				return hint.kind
			}
		}
	}
	return domain.KindReasoning
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*• ")
	line = strings.ReplaceAll(line, "**", "")
	return strings.TrimSpace(line)
}
