package models

// ProcessMetrics are aggregate numbers computed over a process graph.
type ProcessMetrics struct {
	StepCount           int     `json:"step_count"`
	ConnectionCount     int     `json:"connection_count"`
	TotalDuration       int     `json:"total_duration"`
	AverageDuration     float64 `json:"average_duration"`
	BottleneckCount     int     `json:"bottleneck_count"`
	ManualTaskCount     int     `json:"manual_task_count"`
	DistinctSystemCount int     `json:"distinct_system_count"`
	// Systems is the sorted union of every step's systems.
	Systems []string `json:"systems"`
}

// ProcessContext is the input every prompt is rendered from.
type ProcessContext struct {
	Graph *ProcessGraph
	// UserPainPoints were entered by people; AIPainPoints came from earlier analyses.
	UserPainPoints []*PainPoint
	AIPainPoints   []*PainPoint
	Metrics        ProcessMetrics
}

// AllPainPoints returns user-identified pain points followed by AI-detected ones.
func (pc *ProcessContext) AllPainPoints() []*PainPoint {
	all := make([]*PainPoint, 0, len(pc.UserPainPoints)+len(pc.AIPainPoints))
	all = append(all, pc.UserPainPoints...)
	return append(all, pc.AIPainPoints...)
}

// ProcessHealth is the metrics view served to clients.
type ProcessHealth struct {
	Metrics        ProcessMetrics `json:"metrics"`
	PainPointCount int            `json:"pain_point_count"`
	HealthScore    int            `json:"health_score"`
}
