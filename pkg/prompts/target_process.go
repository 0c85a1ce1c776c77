package prompts

import (
	"fmt"
	"strings"

	"github.com/processx-inc/processx-engine/pkg/models"
)

// BuildTargetProcessPrompt asks for a redesigned TO-BE process that applies recs.
func BuildTargetProcessPrompt(pc *models.ProcessContext, recs []models.GeneratedRecommendation) string {
	var b strings.Builder

	b.WriteString("# Target Process Design\n\n")
	b.WriteString("Redesign the following current-state process by applying the recommendations below.\n\n")

	writeProcess(&b, pc)

	b.WriteString("## Recommendations to Apply\n\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. [%s/%s] %s", i+1, r.Category, r.Priority, r.Title)
		if r.Description != "" {
			fmt.Fprintf(&b, ": %s", r.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## Instructions\n\n")
	b.WriteString("- Start with exactly one START step and end with at least one END step.\n")
	fmt.Fprintf(&b, "- step type must be one of: %s, %s, %s, %s\n",
		models.StepTypeStart, models.StepTypeTask, models.StepTypeDecision, models.StepTypeEnd)
	b.WriteString("- Connections refer to steps by their exact name.\n")
	b.WriteString("- Durations are whole minutes.\n")
	b.WriteString("- Summarize every change from the current process in changes.\n\n")

	b.WriteString(`## Response Format

Return a JSON object:
{
  "name": "name of the redesigned process",
  "steps": [
    {"name": "step name", "type": "TASK", "description": "what happens", "duration": 15, "responsible_role": "role", "systems": ["system"]}
  ],
  "connections": [
    {"source": "step name", "target": "step name", "label": "optional condition", "type": "DEFAULT"}
  ],
  "improvement_summary": "how the new process is better",
  "changes": ["change from the current process"],
  "estimated_time_savings": "e.g. 40% faster"
}
`)
	return b.String()
}
