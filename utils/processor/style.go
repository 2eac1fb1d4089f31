package processor

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status icons
const (
	iconSuccess = "✓"
	iconCross   = "✗"
	iconRunning = "⏳"
	iconStep    = "→"
	iconBar     = "█"
	iconBarRest = "░"
	iconRule    = "─"
)

// Palette entries (ANSI 16-color indexes so they degrade cleanly)
var (
	colorGreen   = lipgloss.Color("2")
	colorRed     = lipgloss.Color("1")
	colorYellow  = lipgloss.Color("3")
	colorBlue    = lipgloss.Color("4")
	colorMagenta = lipgloss.Color("5")
	colorCyan    = lipgloss.Color("6")
	colorGray    = lipgloss.Color("8")
)

// StyleConfig controls output styling behavior
type StyleConfig struct {
	UseColors  bool
	UseUnicode bool
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	useColors := true
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		useColors = false
	}
	return &StyleConfig{
		UseColors:  useColors,
		UseUnicode: true,
	}
}

// Styler provides methods for styled terminal output
type Styler struct {
	config *StyleConfig
}

// NewStyler creates a new Styler with the given configuration
func NewStyler(config *StyleConfig) *Styler {
	if config == nil {
		config = DefaultStyleConfig()
	}
	return &Styler{config: config}
}

func (s *Styler) render(style lipgloss.Style, text string) string {
	if !s.config.UseColors {
		return text
	}
	return style.Render(text)
}

func (s *Styler) fg(c lipgloss.Color, text string) string {
	return s.render(lipgloss.NewStyle().Foreground(c), text)
}

// Bold returns bold text
func (s *Styler) Bold(text string) string {
	return s.render(lipgloss.NewStyle().Bold(true), text)
}

// Success returns green text
func (s *Styler) Success(text string) string { return s.fg(colorGreen, text) }

// Error returns red text
func (s *Styler) Error(text string) string { return s.fg(colorRed, text) }

// Warning returns yellow text
func (s *Styler) Warning(text string) string { return s.fg(colorYellow, text) }

// Info returns cyan text
func (s *Styler) Info(text string) string { return s.fg(colorCyan, text) }

// Muted returns gray text
func (s *Styler) Muted(text string) string { return s.fg(colorGray, text) }

// Model returns a styled model name
func (s *Styler) Model(name string) string {
	return s.render(lipgloss.NewStyle().Foreground(colorCyan).Bold(true), name)
}

// StageName returns a styled stage label
func (s *Styler) StageName(name string) string {
	return s.render(lipgloss.NewStyle().Foreground(colorBlue).Bold(true), name)
}

// RunID returns a styled run identifier
func (s *Styler) RunID(id string) string { return s.fg(colorMagenta, id) }

// Duration returns a styled duration
func (s *Styler) Duration(d string) string { return s.Muted(d) }

// SuccessIcon returns a green checkmark
func (s *Styler) SuccessIcon() string {
	if !s.config.UseUnicode {
		return "[OK]"
	}
	return s.Success(iconSuccess)
}

// ErrorIcon returns a red X
func (s *Styler) ErrorIcon() string {
	if !s.config.UseUnicode {
		return "[FAIL]"
	}
	return s.Error(iconCross)
}

// RunningIcon returns a running indicator
func (s *Styler) RunningIcon() string {
	if !s.config.UseUnicode {
		return "[...]"
	}
	return s.Warning(iconRunning)
}

// StepIcon returns a step indicator
func (s *Styler) StepIcon() string {
	if !s.config.UseUnicode {
		return "->"
	}
	return s.Info(iconStep)
}

// Box draws a rounded box around a title, at least width cells wide
func (s *Styler) Box(title string, width int) string {
	if w := lipgloss.Width(title) + 2; width < w {
		width = w
	}
	border := lipgloss.RoundedBorder()
	if !s.config.UseUnicode {
		border = lipgloss.ASCIIBorder()
	}
	style := lipgloss.NewStyle().
		Border(border).
		Width(width).
		Align(lipgloss.Center)
	if s.config.UseColors {
		style = style.Bold(true)
	}
	return style.Render(title)
}

// Divider returns a horizontal line
func (s *Styler) Divider(width int) string {
	if !s.config.UseUnicode {
		return strings.Repeat("-", width)
	}
	return s.Muted(strings.Repeat(iconRule, width))
}

// ProgressBar renders current/total as a bar of the given width with a
// percentage and counter, e.g. "██████░░░░  50% 2/4"
func (s *Styler) ProgressBar(current, total, width int) string {
	if total <= 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	full, rest := iconBar, iconBarRest
	if !s.config.UseUnicode {
		full, rest = "#", "."
	}
	bar := strings.Repeat(full, filled) + strings.Repeat(rest, width-filled)
	return s.Info(bar) + " " + s.Muted(fmt.Sprintf("%3d%% %d/%d", int(percent*100), current, total))
}
