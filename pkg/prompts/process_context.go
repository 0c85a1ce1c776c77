package prompts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/models"
)

// SystemMessage frames every analysis call.
const SystemMessage = `You are an expert business process improvement analyst. You study mapped workflows, find inefficiencies, and propose practical improvements.

Always respond with valid JSON only, exactly in the format requested. Do not include explanations, markdown, or any text outside the JSON.`

// ShouldGenerateTargetProcess reports whether a TO-BE process is worth
// generating: only for current-state processes with at least one HIGH or
// CRITICAL priority recommendation.
func ShouldGenerateTargetProcess(process *models.Process, recs []models.GeneratedRecommendation) bool {
	if process == nil || process.Type != models.ProcessTypeCurrentState {
		return false
	}
	for _, r := range recs {
		if models.Severity(strings.ToUpper(string(r.Priority))).AtLeastHigh() {
			return true
		}
	}
	return false
}

// writeProcess renders the process graph and its metrics.
func writeProcess(b *strings.Builder, pc *models.ProcessContext) {
	g := pc.Graph
	p := g.Process

	b.WriteString("## Process\n\n")
	fmt.Fprintf(b, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(b, "Type: %s\n\n", p.Type)

	b.WriteString("## Steps\n\n")
	for i, s := range g.Steps {
		fmt.Fprintf(b, "%d. %s [%s]", i+1, s.Name, s.Type)
		if s.Duration != nil {
			fmt.Fprintf(b, " - %d min", *s.Duration)
		}
		if s.ResponsibleRole != "" {
			fmt.Fprintf(b, " - role: %s", s.ResponsibleRole)
		}
		if len(s.Systems) > 0 {
			fmt.Fprintf(b, " - systems: %s", strings.Join(s.Systems, ", "))
		} else if s.Type == models.StepTypeTask {
			b.WriteString(" - manual")
		}
		b.WriteString("\n")
		if s.Description != "" {
			fmt.Fprintf(b, "   %s\n", s.Description)
		}
	}
	b.WriteString("\n")

	if len(g.Connections) > 0 {
		b.WriteString("## Flow\n\n")
		for _, c := range g.Connections {
			fmt.Fprintf(b, "- %s → %s", endpointName(g, c.SourceStepID), endpointName(g, c.TargetStepID))
			if c.Label != "" {
				fmt.Fprintf(b, " (%s)", c.Label)
			}
			if c.Type == models.ConnectionTypeConditional {
				b.WriteString(" [conditional]")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	m := pc.Metrics
	b.WriteString("## Metrics\n\n")
	fmt.Fprintf(b, "- Steps: %d\n", m.StepCount)
	fmt.Fprintf(b, "- Total duration: %d min (average %.1f min per step)\n", m.TotalDuration, m.AverageDuration)
	fmt.Fprintf(b, "- Bottleneck steps (over twice the average): %d\n", m.BottleneckCount)
	fmt.Fprintf(b, "- Manual tasks: %d\n", m.ManualTaskCount)
	fmt.Fprintf(b, "- Distinct systems: %d", m.DistinctSystemCount)
	if len(m.Systems) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(m.Systems, ", "))
	}
	b.WriteString("\n\n")
}

func endpointName(g *models.ProcessGraph, id uuid.UUID) string {
	if s := g.StepByID(id); s != nil {
		return s.Name
	}
	return "step " + id.String()
}

func writePainPoints(b *strings.Builder, heading string, points []*models.PainPoint) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if len(points) == 0 {
		b.WriteString("None recorded.\n\n")
		return
	}
	for _, pp := range points {
		origin := "user"
		if pp.IsAIDetected {
			origin = "ai"
		}
		fmt.Fprintf(b, "- [%s/%s] %s (%s)", pp.Category, pp.Severity, pp.Title, origin)
		if pp.Description != "" {
			fmt.Fprintf(b, ": %s", pp.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func joinCategories[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
