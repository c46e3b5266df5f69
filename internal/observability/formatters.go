// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/skill-roadmap/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 3
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens a line to the box width, counting runes.
func truncate(line string) string {
	runes := []rune(line)
	if len(runes) > boxWidth-4 {
		return string(runes[:boxWidth-7]) + "..."
	}
	return line
}

// PrintPlan outputs a detached plan, as produced by the fallback builder.
func (p *Printer) PrintPlan(plan *types.Plan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", plan.Title))
	if plan.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n", plan.Description))
	}
	sb.WriteString("\n")
	writeSteps(&sb, plan.Steps)

	p.printBox("LEARNING PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRoadmap outputs a persisted roadmap with its progress and steps.
func (p *Printer) PrintRoadmap(r *types.Roadmap) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", r.Title))
	sb.WriteString(fmt.Sprintf("Source:   %s", r.Source))
	if r.AIModel != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.AIModel))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Progress: %d%% (%d/%d steps)\n", r.OverallProgress, r.CompletedSteps(), len(r.Steps)))
	sb.WriteString("\n")
	writeSteps(&sb, r.Steps)

	p.printBox("ROADMAP", strings.TrimSuffix(sb.String(), "\n"))
}

func writeSteps(sb *strings.Builder, steps []types.Step) {
	if len(steps) == 0 {
		sb.WriteString("No steps\n")
		return
	}

	for i, step := range steps {
		mark := " "
		if step.Completed {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("[%s] %d. %s", mark, i+1, step.Title))
		if step.Duration != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", step.Duration))
		}
		sb.WriteString("\n")

		count := min(len(step.Resources), maxItemsToShow)
		for j := 0; j < count; j++ {
			sb.WriteString(fmt.Sprintf("      • %s\n", step.Resources[j]))
		}
		if len(step.Resources) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("      ... and %d more\n", len(step.Resources)-maxItemsToShow))
		}
	}
}
