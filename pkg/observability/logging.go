package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cartography/pkg/domain"
)

// LogHooks returns hooks that write one debug line per step and one info line
// per run boundary.
func LogHooks(logger *slog.Logger) domain.RunHooks {
	return domain.RunHooks{
		OnStepAdded: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_added",
				"session_id", e.SessionID,
				"run_id", e.RunID,
				"step", e.Entry.StepIndex,
				"kind", e.Node.Kind,
				"label", e.Node.Label,
			)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_finished",
				"session_id", e.SessionID,
				"run_id", e.RunID,
				"status", e.Status,
				"applied", e.Result.Applied,
				"duration", e.Result.Duration(),
			)
		},
		OnReset: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "session_reset", "session_id", e.SessionID)
		},
	}
}
