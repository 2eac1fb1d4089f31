// Package agent implements the single capability every worker shares:
// wrap the input in a stage template, prepend a persona, make one call.
package agent

import (
	"context"
	"errors"

	"github.com/kris-hansen/versecraft/utils/models"
)

// Agent is bound to a provider, a model and a persona name
type Agent struct {
	Name     string
	Model    string
	Stage    Stage
	Provider models.Provider
}

// New creates an agent for the given stage
func New(name, model string, stage Stage, provider models.Provider) *Agent {
	return &Agent{Name: name, Model: model, Stage: stage, Provider: provider}
}

// Messages builds the two-message exchange sent for input: a system
// message fixing the persona and the templated user prompt
func (a *Agent) Messages(input string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: "You are " + a.Name + "."},
		{Role: models.RoleUser, Content: a.Stage.Template()(input)},
	}
}

// Handle sends input through the agent's template and returns the reply.
// Exactly one Provider.Chat call is made per invocation.
func (a *Agent) Handle(ctx context.Context, input string) (string, error) {
	if a.Provider == nil {
		return "", errors.New("agent " + a.Name + " has no provider")
	}
	return a.Provider.Chat(ctx, a.Model, a.Messages(input))
}

// HandleAs runs input through another stage's template with this agent's
// persona and model. The head agent uses it for plan and review.
func (a *Agent) HandleAs(ctx context.Context, stage Stage, input string) (string, error) {
	clone := *a
	clone.Stage = stage
	return clone.Handle(ctx, input)
}
