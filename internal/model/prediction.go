package model

import "sort"

// Model type hints accepted by the prediction endpoint. Empty lets the backend choose.
const (
	ModelAuto                 = ""
	ModelARIMA                = "arima"
	ModelHoltWinters          = "holtwinters"
	ModelExponentialSmoothing = "exponential_smoothing"
)

// PredictionRequest represents a prediction request
type PredictionRequest struct {
	DatasetID       string `json:"dataset_id"`
	TargetColumn    string `json:"target_column"`
	PredictionQuery string `json:"prediction_query"`
	ModelType       string `json:"model_type,omitempty"`
	ForecastPeriods int    `json:"forecast_periods,omitempty"`
}

// ConfidenceInterval bounds one forecast value.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PredictionResult represents a prediction result
type PredictionResult struct {
	PredictionID        string               `json:"prediction_id"`
	DatasetID           string               `json:"dataset_id"`
	ModelName           string               `json:"model_name"`
	Predictions         []float64            `json:"predictions"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals,omitempty"`
	Metrics             map[string]float64   `json:"metrics"`
	ValidationPassed    bool                 `json:"validation_passed"`
	ValidationDetails   Value                `json:"validation_details"`
	Chart               ChartConfig          `json:"chart"`
	CreatedAt           Timestamp            `json:"created_at"`
}

// MetricNames returns metric keys sorted for stable display.
func (r *PredictionResult) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidationReport is the advisory time-series assumption check.
type ValidationReport struct {
	IsValid         bool     `json:"is_valid"`
	Tests           Value    `json:"tests"`
	Recommendations []string `json:"recommendations"`
}
