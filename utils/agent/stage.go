package agent

import (
	"fmt"
	"strings"
)

// Stage identifies which prompt template an agent applies
type Stage int

const (
	StageSearch Stage = iota
	StagePoem
	StageImage
	StageTranslate
	// StagePlan and StageReview belong to the head agent
	StagePlan
	StageReview
)

// Template wraps an agent's input into the user prompt for one stage
type Template func(input string) string

func prefixed(instruction string) Template {
	return func(input string) string {
		return instruction + "\n" + input
	}
}

var stageTable = map[Stage]struct {
	name     string
	template Template
}{
	StageSearch:    {"search", prefixed("请联网搜索以下主题的相关文章，并返回要点：")},
	StagePoem:      {"poem", prefixed("根据以下资料整合信息，并生成一首中文诗句：")},
	StageImage:     {"image", prefixed("根据以下资料描述一幅画面并返回可用于绘图的图像提示：")},
	StageTranslate: {"translate", prefixed("请将以下中文诗句翻译为地道的英文：")},
	StagePlan:      {"plan", prefixed("根据用户要求自动拆分任务并给各AI分配指令：")},
	StageReview:    {"review", prefixed("请审核并润色以下内容,不要再说改动说明优化等等：")},
}

// WorkerStages are the four stages dispatched by the head agent, in order
var WorkerStages = []Stage{StageSearch, StagePoem, StageImage, StageTranslate}

// String returns the stage name used as a result key
func (s Stage) String() string {
	if entry, ok := stageTable[s]; ok {
		return entry.name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Template returns the prompt template for the stage
func (s Stage) Template() Template {
	if entry, ok := stageTable[s]; ok {
		return entry.template
	}
	return func(input string) string { return input }
}

// ParseStage resolves a stage name, ignoring case and surrounding space
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for stage, entry := range stageTable {
		if entry.name == name {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}
