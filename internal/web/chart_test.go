package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wzyjerry/data-agent-web/internal/model"
)

func TestPlotSpecOverridesLayout(t *testing.T) {
	var chart model.ChartConfig
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "bar",
		"title": "Revenue",
		"data": {
			"data": [{"type": "bar", "x": ["a", "b"], "y": [1, 2]}],
			"layout": {"title": "Revenue by region", "height": 250, "margin": {"t": 0}}
		}
	}`), &chart))

	var spec struct {
		Data   []map[string]any `json:"data"`
		Layout map[string]any   `json:"layout"`
		Config map[string]any   `json:"config"`
	}
	require.NoError(t, json.Unmarshal([]byte(plotSpec(chart)), &spec))

	require.Len(t, spec.Data, 1)
	assert.Equal(t, "bar", spec.Data[0]["type"])
	assert.Equal(t, "Revenue by region", spec.Layout["title"])
	assert.Equal(t, true, spec.Layout["autosize"])
	assert.Equal(t, float64(400), spec.Layout["height"])
	assert.Equal(t, map[string]any{"t": float64(40), "r": float64(40), "b": float64(40), "l": float64(60)}, spec.Layout["margin"])
	assert.Equal(t, map[string]any{"displayModeBar": true, "displaylogo": false, "responsive": true}, spec.Config)
}

func TestPlotSpecWithoutTraces(t *testing.T) {
	chart := model.ChartConfig{Data: model.Object(model.Pair{Key: "layout", Value: model.Null()})}

	var spec map[string]any
	require.NoError(t, json.Unmarshal([]byte(plotSpec(chart)), &spec))
	assert.Equal(t, []any{}, spec["data"])
	assert.Equal(t, float64(400), spec["layout"].(map[string]any)["height"])
}

func TestGroupDigits(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-12000, "-12,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, groupDigits(tc.in), tc.in)
	}
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/workspace", localPath("/workspace", "/"))
	assert.Equal(t, "/analysis/ds-1?result=an-1", localPath("/analysis/ds-1?result=an-1", "/"))
	assert.Equal(t, "/", localPath("", "/"))
	assert.Equal(t, "/", localPath("https://evil.example/", "/"))
	assert.Equal(t, "/", localPath("//evil.example", "/"))
	assert.Equal(t, "/", localPath(`/\evil.example`, "/"))
}
