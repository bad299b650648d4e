package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
)

// Predict runs a time-series forecast for one target column.
func (c *Client) Predict(ctx context.Context, req model.PredictionRequest) (*model.PredictionResult, error) {
	if strings.TrimSpace(req.DatasetID) == "" {
		return nil, ErrEmptyID
	}
	var result model.PredictionResult
	if err := c.sendJSON(ctx, http.MethodPost, "/api/prediction/predict", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPredictionResult fetches a stored prediction result.
func (c *Client) GetPredictionResult(ctx context.Context, id string) (*model.PredictionResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	var result model.PredictionResult
	if err := c.getJSON(ctx, "/api/prediction/result/"+segment(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateTimeSeries asks the backend whether a column satisfies the
// forecasting assumptions. The report is advisory.
func (c *Client) ValidateTimeSeries(ctx context.Context, datasetID, column string) (*model.ValidationReport, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, ErrEmptyID
	}
	var report model.ValidationReport
	query := url.Values{"column": {column}}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/prediction/validate/"+segment(datasetID), query, nil, &report); err != nil {
		return nil, err
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	return &report, nil
}
