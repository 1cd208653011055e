package models

// UploadPayload is the single combined body handed to the upload gateway per
// orchestrator invocation.
type UploadPayload struct {
	InvocationID         string                              `json:"invocationId"`
	UserScope            string                              `json:"userScope"`
	Calories             []DataPointsBatch[float64]          `json:"calories,omitempty"`
	Steps                []DataPointsBatch[float64]          `json:"steps,omitempty"`
	HeartRate            []DataPointsBatch[float64]          `json:"heartRate,omitempty"`
	Sessions             []SessionBundle                     `json:"sessions,omitempty"`
	ChangedProfileFields map[ProfileField]DataPoint[float64] `json:"changedProfileFields,omitempty"`
}

// AddBatches appends batches to the slot belonging to metric.
func (p *UploadPayload) AddBatches(metric MetricType, batches []DataPointsBatch[float64]) {
	switch metric {
	case MetricCalories:
		p.Calories = append(p.Calories, batches...)
	case MetricSteps:
		p.Steps = append(p.Steps, batches...)
	case MetricHeartRate:
		p.HeartRate = append(p.HeartRate, batches...)
	}
}

func (p *UploadPayload) IsEmpty() bool {
	return len(p.Calories) == 0 &&
		len(p.Steps) == 0 &&
		len(p.HeartRate) == 0 &&
		len(p.Sessions) == 0 &&
		len(p.ChangedProfileFields) == 0
}
