// Package crispe builds and sends structured prompts in the CRISPE layout:
// Capacity, Role, Insight, Statement, Personality, Experiment, plus the
// Context and Requirement extensions.
package crispe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/fileutil"
	"github.com/kris-hansen/versecraft/utils/models"
	"gopkg.in/yaml.v3"
)

// SystemPrompt fixes the assistant to the CRISPE layout
const SystemPrompt = "你是一个专业的人工智能助手，严格遵循CRISPE框架执行任务。还可能会增加“内容”框架以及“要求”框架。"

// DefaultModel is used when a params file names no model
const DefaultModel = "deepseek-chat"

// Sampling is the fixed sampling configuration for CRISPE generation
var Sampling = models.ModelConfig{
	Temperature: 0.7,
	MaxTokens:   2000,
	TopP:        0.9,
}

// Params are the CRISPE fields. Only Statement is required.
type Params struct {
	Model       string `yaml:"model,omitempty"`
	Capacity    string `yaml:"capacity"`
	Role        string `yaml:"role"`
	Insight     string `yaml:"insight"`
	Statement   string `yaml:"statement"`
	Personality string `yaml:"personality"`
	Experiment  string `yaml:"experiment"`
	Context     string `yaml:"context"`
	Requirement string `yaml:"requirement"`
}

// Field is one labelled CRISPE entry
type Field struct {
	Label string
	Value string
}

// Fields returns the entries in prompt order
func (p *Params) Fields() []Field {
	return []Field{
		{"Capacity", p.Capacity},
		{"Role", p.Role},
		{"Insight", p.Insight},
		{"Statement", p.Statement},
		{"Personality", p.Personality},
		{"Experiment", p.Experiment},
		{"Context", p.Context},
		{"Requirement", p.Requirement},
	}
}

// Validate reports missing required fields
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Statement) == "" {
		return fmt.Errorf("crispe: statement is required")
	}
	return nil
}

// Load reads params from a YAML file
func Load(path string) (*Params, error) {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := fileutil.SafeReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}
	return Parse(data)
}

// Parse decodes params from YAML and validates them
func Parse(data []byte) (*Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Build renders one "[Label] value" line per field
func Build(p *Params) string {
	var sb strings.Builder
	for _, f := range p.Fields() {
		fmt.Fprintf(&sb, "[%s] %s\n", f.Label, f.Value)
	}
	return sb.String()
}

// Result is a generated reply and how long it took
type Result struct {
	Model   string
	Reply   string
	Elapsed time.Duration
}

// Generate sends the rendered prompt under the CRISPE system prompt. The
// provider's sampling is set to Sampling when it can be tuned.
func Generate(ctx context.Context, provider models.Provider, model string, p *Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	if t, ok := provider.(models.Tunable); ok {
		t.SetConfig(Sampling)
	}

	config.DebugLog("[CRISPE] Generating with %s", model)
	start := time.Now()
	reply, err := provider.Chat(ctx, model, []models.Message{
		{Role: models.RoleSystem, Content: SystemPrompt},
		{Role: models.RoleUser, Content: Build(p)},
	})
	if err != nil {
		return nil, fmt.Errorf("crispe generation failed: %w", err)
	}
	return &Result{Model: model, Reply: reply, Elapsed: time.Since(start)}, nil
}
