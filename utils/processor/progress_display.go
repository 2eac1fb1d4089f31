package processor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// timestampLayout prefixes every progress line
const timestampLayout = "2006-01-02 15:04:05"

// ProgressDisplay prints timestamped stage progress for a run. It is purely
// cosmetic: nothing in the scheduler waits on it, and a disabled display
// prints nothing. Safe for concurrent use by parallel stages.
type ProgressDisplay struct {
	styler    *Styler
	mu        sync.Mutex
	out       io.Writer
	enabled   bool
	now       func() time.Time
	startTime time.Time
	total     int
	completed int
}

// NewProgressDisplay creates a progress display writing to stdout
func NewProgressDisplay(enabled bool) *ProgressDisplay {
	return &ProgressDisplay{
		styler:  NewStyler(DefaultStyleConfig()),
		out:     os.Stdout,
		enabled: enabled,
		now:     time.Now,
	}
}

// SetOutput redirects progress output
func (p *ProgressDisplay) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// SetStyler replaces the styler (tests use a colorless one)
func (p *ProgressDisplay) SetStyler(s *Styler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.styler = s
}

// SetEnabled enables or disables the progress display
func (p *ProgressDisplay) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *ProgressDisplay) linef(format string, args ...interface{}) {
	stamp := p.styler.Muted("[" + p.now().Format(timestampLayout) + "]")
	fmt.Fprintf(p.out, "%s %s\n", stamp, fmt.Sprintf(format, args...))
}

// StartRun prints the run header and starts the overall timer
func (p *ProgressDisplay) StartRun(runID string, totalStages int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.total = totalStages
	p.completed = 0

	if !p.enabled {
		return
	}
	fmt.Fprintln(p.out, p.styler.Box("versecraft "+p.styler.RunID(runID), 50))
	p.linef("%s 开始任务拆分", p.styler.RunningIcon())
}

// CompletePlan reports the plan split
func (p *ProgressDisplay) CompletePlan(entries int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	p.linef("%s 任务拆分完成，共 %d 条指令 %s", p.styler.SuccessIcon(), entries, p.styler.Duration(formatSeconds(d)))
}

// StartStage reports a stage starting
func (p *ProgressDisplay) StartStage(label, model string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	modelStr := ""
	if model != "" {
		modelStr = " " + p.styler.Muted("["+model+"]")
	}
	p.linef("%s 开始 %s%s", p.styler.StepIcon(), p.styler.StageName(label), modelStr)
}

// CompleteStage reports a stage finishing and advances the progress bar
func (p *ProgressDisplay) CompleteStage(label string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if !p.enabled {
		return
	}
	p.linef("%s 完成 %s，耗时 %s", p.styler.SuccessIcon(), p.styler.StageName(label), formatSeconds(d))
	fmt.Fprintf(p.out, "  任务进度 %s\n", p.styler.ProgressBar(p.completed, p.total, 20))
}

// FailStage reports a stage failure
func (p *ProgressDisplay) FailStage(label string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	p.linef("%s %s 失败", p.styler.ErrorIcon(), p.styler.Error(label))
	fmt.Fprintf(p.out, "  %s\n", p.styler.Muted(err.Error()))
}

// StartReview reports the review call starting
func (p *ProgressDisplay) StartReview() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	p.linef("%s 开始审核与润色", p.styler.StepIcon())
}

// CompleteRun reports total elapsed time
func (p *ProgressDisplay) CompleteRun() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.now().Sub(p.startTime)
	if p.enabled {
		p.linef("%s 任务完成，总耗时 %s", p.styler.SuccessIcon(), formatSeconds(total))
	}
	return total
}

// FailRun reports that the run aborted
func (p *ProgressDisplay) FailRun(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	fmt.Fprintln(p.out, p.styler.Divider(50))
	p.linef("%s %s", p.styler.ErrorIcon(), p.styler.Error("任务失败"))
	fmt.Fprintf(p.out, "  %s\n", p.styler.Muted(err.Error()))
}

// formatSeconds renders a duration the way the run log reports it: "1.23 秒"
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2f 秒", d.Seconds())
}
