package prompts

import (
	"fmt"
	"strings"

	"github.com/processx-inc/processx-engine/pkg/models"
)

// BuildPainPointPrompt asks the model for pain points not already recorded.
func BuildPainPointPrompt(pc *models.ProcessContext) string {
	var b strings.Builder

	b.WriteString("# Pain Point Detection\n\n")
	b.WriteString("Identify inefficiencies in the following business process.\n\n")

	writeProcess(&b, pc)
	writePainPoints(&b, "Existing Pain Points", pc.AllPainPoints())

	b.WriteString("## Instructions\n\n")
	b.WriteString("- Return only NEW pain points. Do not repeat or rephrase any existing pain point listed above.\n")
	b.WriteString("- Ground every pain point in specific steps, durations, roles or systems shown above.\n")
	b.WriteString("- Steps longer than twice the average duration are likely bottlenecks; tasks without systems are manual.\n")
	fmt.Fprintf(&b, "- category must be one of: %s\n", joinCategories(models.PainPointCategories))
	fmt.Fprintf(&b, "- severity must be one of: %s\n", joinCategories(models.Severities))
	b.WriteString("- If there are no new pain points, return an empty array.\n\n")

	b.WriteString(`## Response Format

Return a JSON array:
[
  {
    "title": "short title",
    "description": "what goes wrong and why it matters",
    "category": "BOTTLENECK",
    "severity": "HIGH",
    "step_name": "exact name of the affected step, if any",
    "estimated_cost": "cost impact, e.g. $2,000/month",
    "estimated_time": "time lost, e.g. 4 hours/week",
    "frequency": "how often it happens, e.g. daily"
  }
]
`)
	return b.String()
}
