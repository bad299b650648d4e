package model

// ChartConfig is a rendering-library chart specification. Data and Config are
// forwarded to the chart component verbatim.
type ChartConfig struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Data   Value  `json:"data"`
	Config Value  `json:"config,omitempty"`
}

// HasData reports whether the chart carries a payload worth rendering.
func (c *ChartConfig) HasData() bool {
	return c != nil && !c.Data.IsNull()
}

// AnalysisRequest represents an analysis request
type AnalysisRequest struct {
	DatasetID       string `json:"dataset_id"`
	UserQuery       string `json:"user_query"`
	DataDescription string `json:"data_description,omitempty"`
}

// AnalysisResult represents an analysis result
type AnalysisResult struct {
	AnalysisID string        `json:"analysis_id"`
	DatasetID  string        `json:"dataset_id"`
	Summary    string        `json:"summary"`
	Insights   []string      `json:"insights"`
	Charts     []ChartConfig `json:"charts"`
	Statistics Value         `json:"statistics"`
	CreatedAt  Timestamp     `json:"created_at"`
}
