package processor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kris-hansen/versecraft/utils/agent"
	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/models"
)

// durationLog collects per-stage timings from concurrent stages
type durationLog struct {
	mu     sync.Mutex
	values map[string]time.Duration
}

func (d *durationLog) set(stage string, v time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[stage] = v
}

func (d *durationLog) snapshot() map[string]time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]time.Duration, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Summary renders the per-stage timings, slowest first
func (r *RunReport) Summary() string {
	type entry struct {
		stage string
		d     time.Duration
	}
	entries := make([]entry, 0, len(r.Durations))
	for stage, d := range r.Durations {
		entries = append(entries, entry{stage, d})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].d != entries[j].d {
			return entries[i].d > entries[j].d
		}
		return entries[i].stage < entries[j].stage
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %d stages, total %s\n", r.RunID, len(entries), formatSeconds(r.Total))
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %-10s %s\n", e.stage, formatSeconds(e.d))
	}
	return sb.String()
}

// NewHeadAgentFromConfig builds the head agent and one worker per stage
// from configuration. Every agent's provider is resolved and its API key
// checked here, so a missing credential fails before the first call.
func NewHeadAgentFromConfig(cfg *config.Config, opts ...Option) (*HeadAgent, error) {
	build := func(ac config.AgentConfig, stage agent.Stage) (*agent.Agent, error) {
		provider, err := models.NewProviderForModel(ac.Model, cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		return agent.New(ac.Name, ac.Model, stage, provider), nil
	}

	head, err := build(cfg.Head, agent.StagePlan)
	if err != nil {
		return nil, err
	}

	workers := make(map[agent.Stage]*agent.Agent, len(agent.WorkerStages))
	for _, stage := range agent.WorkerStages {
		w, err := build(cfg.Stage(stage.String()), stage)
		if err != nil {
			return nil, err
		}
		workers[stage] = w
	}

	base := []Option{
		WithRouting(cfg.PlanRouting),
		WithParallel(cfg.Parallel),
		WithRequestTimeout(cfg.RequestTimeout),
	}
	return NewHeadAgent(head, workers, append(base, opts...)...)
}
