package prompts

import (
	"strings"

	"github.com/processx-inc/processx-engine/pkg/models"
)

// BuildUnderstandingPrompt asks the model to describe what the process is for
// and how it is structured.
func BuildUnderstandingPrompt(pc *models.ProcessContext) string {
	var b strings.Builder

	b.WriteString("# Process Understanding\n\n")
	b.WriteString("Study the following business process and describe it.\n\n")

	writeProcess(&b, pc)
	writePainPoints(&b, "Known Pain Points", pc.AllPainPoints())

	b.WriteString(`## Response Format

Return a JSON object:
{
  "purpose": "one sentence describing what the process achieves",
  "critical_path": ["step names on the path that determines total duration, in order"],
  "stakeholders": ["roles or teams involved"],
  "complexity": "LOW" | "MEDIUM" | "HIGH",
  "strengths": ["what the process does well"],
  "weaknesses": ["where the process is fragile or slow"],
  "summary": "two or three sentence overview"
}
`)
	return b.String()
}
