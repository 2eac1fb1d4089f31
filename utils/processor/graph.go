package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kris-hansen/versecraft/utils/agent"
	"golang.org/x/sync/errgroup"
)

// StageNode is one vertex of the stage graph. Input derives the node's
// input from the results of its dependencies; Run performs the stage.
type StageNode struct {
	Stage     agent.Stage
	DependsOn []agent.Stage
	Label     string
	Model     string
	Input     func(r *Results) (string, error)
	Run       func(ctx context.Context, input string) (string, error)
}

// StageGraph is a directed acyclic graph of stages; edges point from a
// stage to the stages whose output it consumes
type StageGraph struct {
	order        []agent.Stage
	nodes        map[agent.Stage]*StageNode
	reverseEdges map[agent.Stage][]agent.Stage
}

// StageError attributes a failure to the stage that raised it
type StageError struct {
	Stage agent.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageHooks observe node execution; any field may be nil
type StageHooks struct {
	OnStart    func(node *StageNode)
	OnComplete func(node *StageNode, d time.Duration)
	OnFail     func(node *StageNode, err error)
}

// NewStageGraph builds a graph from nodes in declaration order. Declaration
// order breaks ties, so a sequential run visits independent stages in the
// order they were declared.
func NewStageGraph(nodes ...*StageNode) (*StageGraph, error) {
	g := &StageGraph{
		nodes:        make(map[agent.Stage]*StageNode),
		reverseEdges: make(map[agent.Stage][]agent.Stage),
	}

	for _, n := range nodes {
		if _, dup := g.nodes[n.Stage]; dup {
			return nil, fmt.Errorf("stage '%s' declared twice", n.Stage)
		}
		g.nodes[n.Stage] = n
		g.order = append(g.order, n.Stage)
	}

	for _, name := range g.order {
		for _, dep := range g.nodes[name].DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				return nil, fmt.Errorf("stage '%s' depends on non-existent stage '%s'", name, dep)
			}
			g.reverseEdges[dep] = append(g.reverseEdges[dep], name)
		}
	}

	if _, err := g.TopologicalSort(); err != nil {
		return nil, err
	}
	return g, nil
}

// Node returns the node for a stage, or nil
func (g *StageGraph) Node(stage agent.Stage) *StageNode {
	return g.nodes[stage]
}

// Len returns the number of stages in the graph
func (g *StageGraph) Len() int {
	return len(g.order)
}

// TopologicalSort performs topological sort using Kahn's algorithm
// Returns execution order or error if cycle detected
func (g *StageGraph) TopologicalSort() ([]agent.Stage, error) {
	inDegree := make(map[agent.Stage]int)
	var queue []agent.Stage
	for _, name := range g.order {
		inDegree[name] = len(g.nodes[name].DependsOn)
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var result []agent.Stage
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range g.reverseEdges[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		if cycle := g.findCycle(); len(cycle) > 0 {
			return nil, fmt.Errorf("dependency cycle detected: %s", formatCycle(cycle))
		}
		return nil, fmt.Errorf("dependency cycle detected (unable to determine specific cycle)")
	}
	return result, nil
}

// findCycle attempts to find a cycle in the graph using DFS
func (g *StageGraph) findCycle() []agent.Stage {
	visited := make(map[agent.Stage]bool)
	recStack := make(map[agent.Stage]bool)
	parent := make(map[agent.Stage]agent.Stage)

	var dfs func(agent.Stage) []agent.Stage
	dfs = func(node agent.Stage) []agent.Stage {
		visited[node] = true
		recStack[node] = true

		for _, dep := range g.nodes[node].DependsOn {
			if !visited[dep] {
				parent[dep] = node
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				cycle := []agent.Stage{dep}
				current := node
				for current != dep {
					cycle = append([]agent.Stage{current}, cycle...)
					current = parent[current]
				}
				return append(cycle, dep)
			}
		}

		recStack[node] = false
		return nil
	}

	for _, node := range g.order {
		if !visited[node] {
			if cycle := dfs(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func formatCycle(cycle []agent.Stage) string {
	names := make([]string, len(cycle))
	for i, s := range cycle {
		names[i] = s.String()
	}
	return strings.Join(names, " -> ")
}

// Execute runs every node once its dependencies have results and records
// each output in results. Sequential mode runs nodes one at a time in
// topological order. Parallel mode starts a goroutine per node that waits
// for its dependencies; the first failure cancels the rest, and nodes that
// have not started yet never start.
func (g *StageGraph) Execute(ctx context.Context, results *Results, parallel bool, hooks StageHooks) error {
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}

	if !parallel {
		for _, stage := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := g.runNode(ctx, g.nodes[stage], results, hooks); err != nil {
				return err
			}
		}
		return nil
	}

	done := make(map[agent.Stage]chan struct{}, len(order))
	for _, stage := range order {
		done[stage] = make(chan struct{})
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, stage := range order {
		node := g.nodes[stage]
		eg.Go(func() error {
			for _, dep := range node.DependsOn {
				select {
				case <-done[dep]:
				case <-egCtx.Done():
					return egCtx.Err()
				}
			}
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := g.runNode(egCtx, node, results, hooks); err != nil {
				return err
			}
			close(done[node.Stage])
			return nil
		})
	}
	return eg.Wait()
}

func (g *StageGraph) runNode(ctx context.Context, node *StageNode, results *Results, hooks StageHooks) error {
	input, err := node.Input(results)
	if err != nil {
		return &StageError{Stage: node.Stage, Err: err}
	}

	if hooks.OnStart != nil {
		hooks.OnStart(node)
	}
	start := time.Now()

	output, err := node.Run(ctx, input)
	if err != nil {
		err = &StageError{Stage: node.Stage, Err: err}
		if hooks.OnFail != nil {
			hooks.OnFail(node, err)
		}
		return err
	}

	if err := results.Set(node.Stage, output); err != nil {
		return &StageError{Stage: node.Stage, Err: err}
	}
	if hooks.OnComplete != nil {
		hooks.OnComplete(node, time.Since(start))
	}
	return nil
}
