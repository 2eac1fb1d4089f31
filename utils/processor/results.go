package processor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kris-hansen/versecraft/utils/agent"
)

var (
	// ErrResultExists is returned when a stage result is written twice
	ErrResultExists = errors.New("stage result already recorded")
	// ErrResultMissing is returned when a stage result is read before it exists
	ErrResultMissing = errors.New("stage result not recorded")
)

// Results holds each stage's output for one run. Every key is written
// exactly once and is read-only afterwards.
type Results struct {
	mu      sync.RWMutex
	outputs map[agent.Stage]string
}

// NewResults creates an empty result set
func NewResults() *Results {
	return &Results{outputs: make(map[agent.Stage]string)}
}

// Set records the output of a stage
func (r *Results) Set(stage agent.Stage, output string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.outputs[stage]; exists {
		return fmt.Errorf("%w: %s", ErrResultExists, stage)
	}
	r.outputs[stage] = output
	return nil
}

// Get returns the output of a stage
func (r *Results) Get(stage agent.Stage) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out, ok := r.outputs[stage]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrResultMissing, stage)
	}
	return out, nil
}

// Has reports whether a stage has recorded output
func (r *Results) Has(stage agent.Stage) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outputs[stage]
	return ok
}

// Snapshot returns a copy keyed by stage name
func (r *Results) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.outputs))
	for stage, text := range r.outputs {
		out[stage.String()] = text
	}
	return out
}
