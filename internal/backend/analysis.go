package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
)

// Analyze runs a natural-language analysis of a dataset.
func (c *Client) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	if strings.TrimSpace(req.DatasetID) == "" {
		return nil, ErrEmptyID
	}
	var result model.AnalysisResult
	if err := c.sendJSON(ctx, http.MethodPost, "/api/analysis/analyze", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAnalysisResult fetches a stored analysis result.
func (c *Client) GetAnalysisResult(ctx context.Context, id string) (*model.AnalysisResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	var result model.AnalysisResult
	if err := c.getJSON(ctx, "/api/analysis/result/"+segment(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
