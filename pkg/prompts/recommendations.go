package prompts

import (
	"fmt"
	"strings"

	"github.com/processx-inc/processx-engine/pkg/models"
)

// BuildRecommendationPrompt asks for improvements addressing the known and
// newly detected pain points. understanding may be nil.
func BuildRecommendationPrompt(pc *models.ProcessContext, understanding *models.ProcessUnderstanding, detected []models.DetectedPainPoint) string {
	var b strings.Builder

	b.WriteString("# Improvement Recommendations\n\n")
	b.WriteString("Recommend improvements for the following business process.\n\n")

	writeProcess(&b, pc)

	if understanding != nil {
		b.WriteString("## Process Analysis\n\n")
		if understanding.Purpose != "" {
			fmt.Fprintf(&b, "Purpose: %s\n", understanding.Purpose)
		}
		if understanding.Complexity != "" {
			fmt.Fprintf(&b, "Complexity: %s\n", understanding.Complexity)
		}
		if len(understanding.CriticalPath) > 0 {
			fmt.Fprintf(&b, "Critical path: %s\n", strings.Join(understanding.CriticalPath, " → "))
		}
		if len(understanding.Weaknesses) > 0 {
			fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(understanding.Weaknesses, "; "))
		}
		b.WriteString("\n")
	}

	writePainPoints(&b, "Recorded Pain Points", pc.AllPainPoints())

	if len(detected) > 0 {
		b.WriteString("## Newly Detected Pain Points\n\n")
		for _, d := range detected {
			fmt.Fprintf(&b, "- [%s/%s] %s", d.Category, d.Severity, d.Title)
			if d.Description != "" {
				fmt.Fprintf(&b, ": %s", d.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Instructions\n\n")
	fmt.Fprintf(&b, "- category must be one of: %s\n", joinCategories(models.RecommendationCategories))
	fmt.Fprintf(&b, "- priority and effort must be one of: %s\n", joinCategories(models.Severities))
	b.WriteString("- QUICK_WIN means low effort and visible impact within weeks; REDESIGN changes the flow itself.\n")
	b.WriteString("- List the titles of the pain points each recommendation addresses in related_pain_points.\n")
	b.WriteString("- Give measurable metrics with current and target values where possible.\n\n")

	b.WriteString(`## Response Format

Return a JSON array:
[
  {
    "title": "short title",
    "description": "what to change",
    "category": "AUTOMATION",
    "priority": "HIGH",
    "effort": "MEDIUM",
    "timeline": "e.g. 2-4 weeks",
    "implementation_steps": ["ordered steps"],
    "expected_benefits": ["benefit"],
    "metrics": [{"name": "cycle time", "current": "5 days", "target": "2 days"}],
    "related_pain_points": ["pain point title"]
  }
]
`)
	return b.String()
}
