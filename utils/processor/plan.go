package processor

import "strings"

// MaxPlanEntries is how many lines of the planning reply are kept
const MaxPlanEntries = 4

// Plan is the head agent's task split: up to MaxPlanEntries instruction lines
type Plan []string

// ParsePlan splits the planning reply on newlines and keeps the first
// MaxPlanEntries lines. Blank lines keep their position.
func ParsePlan(text string) Plan {
	lines := strings.Split(text, "\n")
	if len(lines) > MaxPlanEntries {
		lines = lines[:MaxPlanEntries]
	}
	return Plan(lines)
}

// Entry returns the i-th instruction as planned, or "" when the plan is shorter
func (p Plan) Entry(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	return p[i]
}

// Blank reports whether the i-th instruction is missing or whitespace only
func (p Plan) Blank(i int) bool {
	return strings.TrimSpace(p.Entry(i)) == ""
}
