package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kris-hansen/versecraft/utils/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func echoNode(stage agent.Stage, deps ...agent.Stage) *StageNode {
	return &StageNode{
		Stage:     stage,
		DependsOn: deps,
		Label:     stage.String(),
		Input: func(r *Results) (string, error) {
			if len(deps) == 0 {
				return "root", nil
			}
			return r.Get(deps[0])
		},
		Run: func(_ context.Context, input string) (string, error) {
			return input + ">" + stage.String(), nil
		},
	}
}

func TestTopologicalSortDeclarationOrder(t *testing.T) {
	g, err := NewStageGraph(
		echoNode(agent.StageSearch),
		echoNode(agent.StagePoem, agent.StageSearch),
		echoNode(agent.StageImage, agent.StageSearch),
		echoNode(agent.StageTranslate, agent.StagePoem),
	)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []agent.Stage{agent.StageSearch, agent.StagePoem, agent.StageImage, agent.StageTranslate}, order)
}

func TestNewStageGraphRejectsCycle(t *testing.T) {
	_, err := NewStageGraph(
		echoNode(agent.StageSearch, agent.StageTranslate),
		echoNode(agent.StagePoem, agent.StageSearch),
		echoNode(agent.StageTranslate, agent.StagePoem),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle detected")
	assert.Contains(t, err.Error(), "search")
}

func TestNewStageGraphRejectsBadNodes(t *testing.T) {
	_, err := NewStageGraph(echoNode(agent.StagePoem, agent.StageSearch))
	assert.ErrorContains(t, err, "non-existent stage 'search'")

	_, err = NewStageGraph(echoNode(agent.StageSearch), echoNode(agent.StageSearch))
	assert.ErrorContains(t, err, "declared twice")
}

func TestExecuteSequentialChainsOutputs(t *testing.T) {
	g, err := NewStageGraph(
		echoNode(agent.StageSearch),
		echoNode(agent.StagePoem, agent.StageSearch),
		echoNode(agent.StageTranslate, agent.StagePoem),
	)
	require.NoError(t, err)

	results := NewResults()
	var started []agent.Stage
	hooks := StageHooks{OnStart: func(n *StageNode) { started = append(started, n.Stage) }}
	require.NoError(t, g.Execute(context.Background(), results, false, hooks))

	out, err := results.Get(agent.StageTranslate)
	require.NoError(t, err)
	assert.Equal(t, "root>search>poem>translate", out)
	assert.Equal(t, []agent.Stage{agent.StageSearch, agent.StagePoem, agent.StageTranslate}, started)
}

func TestExecuteParallelRunsSiblingsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	var running, peak int32
	track := func(n *StageNode) *StageNode {
		run := n.Run
		n.Run = func(ctx context.Context, input string) (string, error) {
			cur := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return run(ctx, input)
		}
		return n
	}

	g, err := NewStageGraph(
		echoNode(agent.StageSearch),
		track(echoNode(agent.StagePoem, agent.StageSearch)),
		track(echoNode(agent.StageImage, agent.StageSearch)),
	)
	require.NoError(t, err)

	results := NewResults()
	require.NoError(t, g.Execute(context.Background(), results, true, StageHooks{}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
	assert.Equal(t, map[string]string{
		"search": "root>search",
		"poem":   "root>search>poem",
		"image":  "root>search>image",
	}, results.Snapshot())
}

func TestExecuteParallelFailureSkipsDependents(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	failing := echoNode(agent.StageSearch)
	failing.Run = func(context.Context, string) (string, error) { return "", boom }

	var mu sync.Mutex
	var ran []agent.Stage
	record := func(n *StageNode) *StageNode {
		run := n.Run
		n.Run = func(ctx context.Context, input string) (string, error) {
			mu.Lock()
			ran = append(ran, n.Stage)
			mu.Unlock()
			return run(ctx, input)
		}
		return n
	}

	g, err := NewStageGraph(
		failing,
		record(echoNode(agent.StagePoem, agent.StageSearch)),
		record(echoNode(agent.StageTranslate, agent.StagePoem)),
	)
	require.NoError(t, err)

	var failed []agent.Stage
	hooks := StageHooks{OnFail: func(n *StageNode, _ error) { failed = append(failed, n.Stage) }}
	err = g.Execute(context.Background(), NewResults(), true, hooks)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, agent.StageSearch, stageErr.Stage)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ran)
	assert.Equal(t, []agent.Stage{agent.StageSearch}, failed)
}

func TestExecuteRejectsSecondWrite(t *testing.T) {
	results := NewResults()
	require.NoError(t, results.Set(agent.StageSearch, "earlier"))

	g, err := NewStageGraph(echoNode(agent.StageSearch))
	require.NoError(t, err)

	err = g.Execute(context.Background(), results, false, StageHooks{})
	assert.ErrorIs(t, err, ErrResultExists)

	out, _ := results.Get(agent.StageSearch)
	assert.Equal(t, "earlier", out)
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	g, err := NewStageGraph(echoNode(agent.StageSearch))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := NewResults()
	assert.ErrorIs(t, g.Execute(ctx, results, false, StageHooks{}), context.Canceled)
	assert.False(t, results.Has(agent.StageSearch))
}
