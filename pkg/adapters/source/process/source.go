// Package process turns an external command into a step source.
//
// The command receives the query and the desired step count in its environment
// (CARTOGRAPHY_QUERY, CARTOGRAPHY_STEPS) and prints one step per stdout line.
// A line is either a JSON object such as
//
//	{"kind": "retrieval", "label": "Looking up prior work", "confidence": 0.8}
//
// or plain text, which becomes a reasoning step. Arguments are never built from
// the query, so a query cannot inject flags into the command line.
package process

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
)

const (
	EnvQuery = "CARTOGRAPHY_QUERY"
	EnvSteps = "CARTOGRAPHY_STEPS"

	// MaxLineSize bounds one line of agent output.
	MaxLineSize = 1 << 20

	maxStderr = 4 << 10

	// waitDelay bounds how long Wait lingers on pipes still held by agent children.
	waitDelay = time.Second
)

// Source runs one process per run.
type Source struct {
	agent   AgentConfig
	baseDir string
	logger  *slog.Logger
}

// Option configures the source.
type Option func(*Source)

// WithBaseDir sets the working directory for the process.
func WithBaseDir(dir string) Option {
	return func(s *Source) {
		s.baseDir = dir
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a source for agent.
func New(agent AgentConfig, opts ...Option) *Source {
	s := &Source{agent: agent, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.Named.
func (s *Source) Name() string {
	if s.agent.Name != "" {
		return "process:" + s.agent.Name
	}
	return "process"
}

// GenerateSteps implements ports.StepSource. The process is started when the
// first step is pulled and killed as soon as the consumer stops pulling.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Step{}, err)
			return
		}

		procCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		cmd := exec.CommandContext(procCtx, s.agent.Command, s.agent.Args...)
		cmd.Dir = s.baseDir
		cmd.WaitDelay = waitDelay
		cmd.Env = append(cmd.Environ(),
			EnvQuery+"="+query,
			EnvSteps+"="+strconv.Itoa(desired),
		)
		for k, v := range s.agent.Environment {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		var stderr limitedBuffer
		cmd.Stderr = &stderr
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(domain.Step{}, s.unavailable(err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield(domain.Step{}, s.unavailable(err))
			return
		}
		s.logger.Debug("agent process started", "agent", s.agent.Name, "pid", cmd.Process.Pid)

		stop := func() {
			cancel()
			_ = cmd.Wait()
		}

		count := 0
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
		for count < desired && scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			step, err := ParseLine(line)
			if err != nil {
				stop()
				yield(domain.Step{}, s.unavailable(err))
				return
			}
			count++
			if !yield(step, nil) {
				stop()
				return
			}
		}
		if count >= desired {
			stop()
			return
		}
		if err := scanner.Err(); err != nil {
			stop()
			yield(domain.Step{}, s.unavailable(fmt.Errorf("reading output: %w", err)))
			return
		}

		if err := cmd.Wait(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(domain.Step{}, ctxErr)
				return
			}
			yield(domain.Step{}, s.unavailable(fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))))
			return
		}
		if count == 0 {
			yield(domain.Step{}, s.unavailable(errors.New("process produced no steps")))
		}
	}
}

func (s *Source) unavailable(err error) error {
	return fmt.Errorf("%w: agent %s: %w", domain.ErrSourceUnavailable, s.agent.Name, err)
}

// ParseLine decodes one line of agent output.
func ParseLine(line string) (domain.Step, error) {
	if !strings.HasPrefix(line, "{") {
		return domain.Step{Kind: domain.KindReasoning, Label: line, Description: line}, nil
	}
	var step domain.Step
	if err := json.Unmarshal([]byte(line), &step); err != nil {
		return domain.Step{}, fmt.Errorf("malformed step %q: %w", line, err)
	}
	if step.Kind == "" {
		step.Kind = domain.KindReasoning
	}
	if err := step.Validate(); err != nil {
		return domain.Step{}, err
	}
	return step, nil
}

// limitedBuffer keeps the first maxStderr bytes written to it.
type limitedBuffer struct {
	bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := maxStderr - b.Len(); room > 0 {
		b.Buffer.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}
