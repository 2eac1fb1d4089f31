package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kris-hansen/versecraft/utils/agent"
	"github.com/kris-hansen/versecraft/utils/config"
)

// stageLabels are the progress labels for the worker stages
var stageLabels = map[agent.Stage]string{
	agent.StageSearch:    "搜索",
	agent.StagePoem:      "生成诗句",
	agent.StageImage:     "生成图像提示",
	agent.StageTranslate: "翻译诗句",
}

// streamMaxLines caps how much of each stage output goes into the transcript
const streamMaxLines = 40

// fixedInputs is the design-time data dependency of each worker stage:
// which stage's output it consumes. Search has none; it reads plan entry 0.
var fixedInputs = map[agent.Stage]agent.Stage{
	agent.StagePoem:      agent.StageSearch,
	agent.StageImage:     agent.StageSearch,
	agent.StageTranslate: agent.StagePoem,
}

// RunReport is everything one run produced
type RunReport struct {
	RunID       string
	Requirement string
	Plan        Plan
	Results     map[string]string
	Aggregate   string
	Final       string
	Durations   map[string]time.Duration
	Total       time.Duration
}

// HeadAgent plans a requirement, drives the worker stages, aggregates their
// output and has the result reviewed. It runs on a reasoning-tier model.
type HeadAgent struct {
	head           *agent.Agent
	workers        map[agent.Stage]*agent.Agent
	routing        string
	parallel       bool
	requestTimeout time.Duration
	display        *ProgressDisplay
	stream         *StreamLogger
}

// Option customizes a HeadAgent
type Option func(*HeadAgent)

// WithRouting selects how plan entries reach the worker stages
func WithRouting(routing string) Option {
	return func(h *HeadAgent) { h.routing = routing }
}

// WithParallel lets independent stages run concurrently
func WithParallel(parallel bool) Option {
	return func(h *HeadAgent) { h.parallel = parallel }
}

// WithRequestTimeout bounds each model call; zero means no limit
func WithRequestTimeout(d time.Duration) Option {
	return func(h *HeadAgent) { h.requestTimeout = d }
}

// WithProgressDisplay sets where progress is reported
func WithProgressDisplay(d *ProgressDisplay) Option {
	return func(h *HeadAgent) { h.display = d }
}

// WithStreamLog records a transcript of every run
func WithStreamLog(s *StreamLogger) Option {
	return func(h *HeadAgent) { h.stream = s }
}

// NewHeadAgent wires a head agent to one worker per worker stage
func NewHeadAgent(head *agent.Agent, workers map[agent.Stage]*agent.Agent, opts ...Option) (*HeadAgent, error) {
	if head == nil {
		return nil, fmt.Errorf("head agent is required")
	}
	for _, stage := range agent.WorkerStages {
		if workers[stage] == nil {
			return nil, fmt.Errorf("no agent configured for stage %s", stage)
		}
	}

	h := &HeadAgent{
		head:    head,
		workers: workers,
		routing: config.RoutingDiscard,
		display: NewProgressDisplay(false),
	}
	for _, opt := range opts {
		opt(h)
	}

	switch h.routing {
	case config.RoutingDiscard, config.RoutingInstruction:
	default:
		return nil, fmt.Errorf("unknown plan routing %q", h.routing)
	}
	return h, nil
}

// call bounds a single model call by the request timeout, if any
func (h *HeadAgent) call(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// Plan asks the head agent to split the requirement into instructions
func (h *HeadAgent) Plan(ctx context.Context, requirement string) (Plan, error) {
	text, err := h.call(ctx, func(ctx context.Context) (string, error) {
		return h.head.HandleAs(ctx, agent.StagePlan, requirement)
	})
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	return ParsePlan(text), nil
}

// Review asks the head agent to polish the aggregate document
func (h *HeadAgent) Review(ctx context.Context, aggregate string) (string, error) {
	final, err := h.call(ctx, func(ctx context.Context) (string, error) {
		return h.head.HandleAs(ctx, agent.StageReview, aggregate)
	})
	if err != nil {
		return "", fmt.Errorf("review failed: %w", err)
	}
	return final, nil
}

// BuildGraph lays out the worker stages for a plan according to the
// routing mode. In discard mode only plan entry 0 is used and every other
// stage consumes its upstream stage's output. In instruction mode each
// stage takes its own plan entry and has no upstream edge, unless that entry
// is blank, in which case it falls back to the discard wiring.
func (h *HeadAgent) BuildGraph(requirement string, plan Plan) (*StageGraph, error) {
	nodes := make([]*StageNode, 0, len(agent.WorkerStages))

	for i, stage := range agent.WorkerStages {
		stage := stage // per-iteration copy; the Run closure outlives this iteration
		worker := h.workers[stage]
		node := &StageNode{
			Stage: stage,
			Label: stageLabels[stage],
			Model: worker.Model,
			Run: func(ctx context.Context, input string) (string, error) {
				out, err := h.call(ctx, func(ctx context.Context) (string, error) {
					return worker.Handle(ctx, input)
				})
				if err == nil {
					h.stream.LogBlock("OUTPUT "+stage.String(), out, streamMaxLines)
				}
				return out, err
			},
		}

		upstream, hasUpstream := fixedInputs[stage]
		usePlan := !hasUpstream || (h.routing == config.RoutingInstruction && !plan.Blank(i))

		switch {
		case usePlan && !plan.Blank(i):
			instruction := plan.Entry(i)
			node.Input = func(*Results) (string, error) { return instruction, nil }
		case usePlan:
			// nothing planned for the root stage; search the requirement itself
			node.Input = func(*Results) (string, error) { return requirement, nil }
		default:
			node.DependsOn = []agent.Stage{upstream}
			node.Input = func(r *Results) (string, error) { return r.Get(upstream) }
		}

		nodes = append(nodes, node)
	}

	return NewStageGraph(nodes...)
}

// Run executes one full pass: plan, worker stages, aggregate, review.
// Any failure aborts the run and no partial report is returned.
func (h *HeadAgent) Run(ctx context.Context, requirement string) (*RunReport, error) {
	runID := uuid.NewString()
	log := config.Logger().With("run", runID)
	log.Infow("Starting run", "routing", h.routing, "parallel", h.parallel)

	h.display.StartRun(runID, len(agent.WorkerStages))
	h.stream.LogSection("RUN " + runID)
	h.stream.LogBlock("REQUIREMENT", requirement, 0)

	report, err := h.run(ctx, runID, requirement)
	if err != nil {
		log.Errorw("Run failed", "error", err)
		h.display.FailRun(err)
		h.stream.LogError(err)
		return nil, err
	}

	report.Total = h.display.CompleteRun()
	log.Infow("Run completed", "total", report.Total)
	return report, nil
}

func (h *HeadAgent) run(ctx context.Context, runID, requirement string) (*RunReport, error) {
	log := config.Logger().With("run", runID)

	planStart := time.Now()
	plan, err := h.Plan(ctx, requirement)
	if err != nil {
		return nil, err
	}
	h.display.CompletePlan(len(plan), time.Since(planStart))
	log.Debugw("Plan received", "entries", len(plan), "plan", strings.Join(plan, " | "))
	h.stream.LogBlock("PLAN", strings.Join(plan, "\n"), 0)

	graph, err := h.BuildGraph(requirement, plan)
	if err != nil {
		return nil, err
	}

	results := NewResults()
	durations := &durationLog{values: make(map[string]time.Duration)}
	hooks := StageHooks{
		OnStart: func(n *StageNode) {
			log.Debugw("Stage started", "stage", n.Stage.String(), "model", n.Model)
			h.display.StartStage(n.Label, n.Model)
		},
		OnComplete: func(n *StageNode, d time.Duration) {
			durations.set(n.Stage.String(), d)
			h.display.CompleteStage(n.Label, d)
		},
		OnFail: func(n *StageNode, err error) {
			h.display.FailStage(n.Label, err)
		},
	}
	if err := graph.Execute(ctx, results, h.parallel, hooks); err != nil {
		return nil, err
	}

	poem, err := results.Get(agent.StagePoem)
	if err != nil {
		return nil, err
	}
	translation, err := results.Get(agent.StageTranslate)
	if err != nil {
		return nil, err
	}
	image, err := results.Get(agent.StageImage)
	if err != nil {
		return nil, err
	}
	aggregate := Aggregate(poem, translation, image)
	h.stream.LogBlock("AGGREGATE", aggregate, 0)

	h.display.StartReview()
	reviewStart := time.Now()
	final, err := h.Review(ctx, aggregate)
	if err != nil {
		return nil, err
	}
	durations.set(agent.StageReview.String(), time.Since(reviewStart))
	h.stream.LogBlock("FINAL", final, 0)

	return &RunReport{
		RunID:       runID,
		Requirement: requirement,
		Plan:        plan,
		Results:     results.Snapshot(),
		Aggregate:   aggregate,
		Final:       final,
		Durations:   durations.snapshot(),
	}, nil
}
