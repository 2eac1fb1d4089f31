package processor

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDisplay(buf *bytes.Buffer, enabled bool) (*ProgressDisplay, *time.Time) {
	clock := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	p := NewProgressDisplay(enabled)
	p.SetOutput(buf)
	p.SetStyler(NewStyler(&StyleConfig{UseColors: false, UseUnicode: false}))
	p.now = func() time.Time { return clock }
	return p, &clock
}

func TestProgressDisplayRun(t *testing.T) {
	var buf bytes.Buffer
	p, clock := newTestDisplay(&buf, true)

	p.StartRun("run-1", 2)
	p.CompletePlan(4, 1500*time.Millisecond)
	p.StartStage("搜索", "deepseek-chat")
	p.CompleteStage("搜索", 2*time.Second)
	p.StartReview()
	*clock = clock.Add(3250 * time.Millisecond)
	total := p.CompleteRun()

	out := buf.String()
	assert.Equal(t, 3250*time.Millisecond, total)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "[2026-03-14 09:26:53] [...] 开始任务拆分")
	assert.Contains(t, out, "任务拆分完成，共 4 条指令 1.50 秒")
	assert.Contains(t, out, "-> 开始 搜索 [deepseek-chat]")
	assert.Contains(t, out, "[OK] 完成 搜索，耗时 2.00 秒")
	assert.Contains(t, out, "任务进度 ##########..........  50% 1/2")
	assert.Contains(t, out, "开始审核与润色")
	assert.Contains(t, out, "[2026-03-14 09:26:56] [OK] 任务完成，总耗时 3.25 秒")
}

func TestProgressDisplayFailure(t *testing.T) {
	var buf bytes.Buffer
	p, _ := newTestDisplay(&buf, true)

	p.StartRun("run-2", 4)
	p.FailStage("翻译诗句", errors.New("rate limited"))
	p.FailRun(errors.New("stage translate failed"))

	out := buf.String()
	assert.Contains(t, out, "[FAIL] 翻译诗句 失败")
	assert.Contains(t, out, "rate limited")
	assert.Contains(t, out, "任务失败")
	assert.Contains(t, out, "stage translate failed")
}

func TestProgressDisplayDisabled(t *testing.T) {
	var buf bytes.Buffer
	p, clock := newTestDisplay(&buf, false)

	p.StartRun("quiet", 1)
	p.StartStage("搜索", "")
	p.CompleteStage("搜索", time.Second)
	*clock = clock.Add(time.Second)

	// timing still works with output off
	assert.Equal(t, time.Second, p.CompleteRun())
	assert.Empty(t, buf.String())
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0.00 秒", formatSeconds(0))
	assert.Equal(t, "12.35 秒", formatSeconds(12345*time.Millisecond))
}
