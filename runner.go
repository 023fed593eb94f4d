package cartography

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/cartography/pkg/domain"
)

// Runner animates a run on a terminal (or any writer) as steps arrive.
// Formatting is injectable so the core package stays free of TUI concerns.
type Runner struct {
	Output io.Writer

	// JSON writes one StepEvent per line and a final RunResult line instead of text.
	JSON bool

	// Step and Finish override the plain-text formatting.
	Step   func(*domain.StepEvent)
	Finish func(domain.RunResult)
}

// NewRunner creates a Runner writing plain text to w.
func NewRunner(w io.Writer) *Runner {
	return &Runner{Output: w}
}

// Run starts req on v, streams every appended node to the output and returns
// the final result. Cancelling ctx cancels the run.
func (r *Runner) Run(ctx context.Context, v *Visualizer, req domain.RunRequest) (domain.RunResult, error) {
	if r.Output == nil {
		return domain.RunResult{}, fmt.Errorf("output writer must be set (use os.Stdout)")
	}

	// Steps are printed from the driver goroutine in append order.
	unsubscribe := v.OnStep(r.printStep)
	defer unsubscribe()

	if err := v.Start(ctx, req); err != nil {
		return domain.RunResult{}, err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = v.Cancel()
		case <-stop:
		}
	}()

	res, err := v.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return res, err
	}
	r.printResult(res)
	return res, nil
}

func (r *Runner) printStep(e *domain.StepEvent) {
	switch {
	case r.JSON:
		r.writeJSON(e)
	case r.Step != nil:
		r.Step(e)
	default:
		fmt.Fprintf(r.Output, "%3d  [%s] %s\n", e.Entry.StepIndex, e.Node.Kind, e.Node.Label)
	}
}

func (r *Runner) printResult(res domain.RunResult) {
	switch {
	case r.JSON:
		r.writeJSON(res)
	case r.Finish != nil:
		r.Finish(res)
	default:
		fmt.Fprintf(r.Output, "%s (%d steps)\n", res.Status, res.Applied)
		if res.Err != "" {
			fmt.Fprintf(r.Output, "error: %s\n", res.Err)
		}
	}
}

func (r *Runner) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(r.Output, "%s\n", data)
}
