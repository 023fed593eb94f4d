package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/projector"
	"github.com/muesli/termenv"
)

var glyphs = map[domain.Kind]string{
	domain.KindInput:     "◆",
	domain.KindReasoning: "●",
	domain.KindRetrieval: "◎",
	domain.KindData:      "▣",
	domain.KindDecision:  "◇",
	domain.KindError:     "✖",
}

// StepPrinter writes an animated step log to a terminal, one line per node,
// colored with the projector's kind palette.
type StepPrinter struct {
	w   io.Writer
	out *termenv.Output
}

// NewStepPrinter creates a printer for w. Pass termenv.WithProfile(termenv.Ascii)
// to disable colors.
func NewStepPrinter(w io.Writer, opts ...termenv.OutputOption) *StepPrinter {
	return &StepPrinter{w: w, out: termenv.NewOutput(w, opts...)}
}

// PrintStep writes one log line for a freshly added node.
func (p *StepPrinter) PrintStep(e *domain.StepEvent) {
	color := p.out.Color(projector.Color(e.Node.Kind))
	glyph := glyphs[e.Node.Kind]
	if glyph == "" {
		glyph = "•"
	}

	kind := p.out.String(fmt.Sprintf("%s %-9s", glyph, e.Node.Kind)).Foreground(color)
	line := fmt.Sprintf("%3d  %s  %s", e.Entry.StepIndex, kind, e.Node.Label)
	if e.Node.Kind != domain.KindInput && e.Node.Kind != domain.KindError {
		line += p.out.String(fmt.Sprintf("  (%.0f%%)", e.Node.Confidence*100)).Faint().String()
	}
	fmt.Fprintln(p.w, line)
}

// PrintResult writes the final status line of a run.
func (p *StepPrinter) PrintResult(res domain.RunResult) {
	color := "#2ecc71"
	switch res.Status {
	case domain.StatusFailed:
		color = "#ff4d4d"
	case domain.StatusCancelled:
		color = "#e67e22"
	}
	status := p.out.String(strings.ToUpper(string(res.Status))).Bold().Foreground(p.out.Color(color))
	line := fmt.Sprintf("%s  %d steps in %s", status, res.Applied, res.Duration().Round(time.Millisecond))
	if res.Err != "" {
		line += "  " + res.Err
	}
	fmt.Fprintln(p.w, line)
}

// Summary renders a run as a markdown document for glamour.
func Summary(record *domain.RunRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escape(record.Query))
	fmt.Fprintf(&sb, "- **Run:** `%s`\n", record.RunID)
	fmt.Fprintf(&sb, "- **Session:** `%s`\n", record.SessionID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", record.Status)
	fmt.Fprintf(&sb, "- **Started:** %s\n", record.StartedAt.Format("2006-01-02 15:04:05"))
	if !record.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond))
	}
	if record.Err != "" {
		fmt.Fprintf(&sb, "- **Error:** %s\n", escape(record.Err))
	}

	sb.WriteString("\n| # | Kind | Step | Confidence |\n|---|------|------|------------|\n")
	for _, n := range record.Snapshot.Nodes {
		fmt.Fprintf(&sb, "| %d | %s | %s | %.2f |\n", n.Seq, n.Kind, escape(n.Label), n.Confidence)
	}
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
