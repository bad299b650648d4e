package web

import (
	"github.com/wzyjerry/data-agent-web/internal/model"
)

// Layout keys the chart card always sets, whatever the backend sent.
var layoutOverrides = []model.Pair{
	{Key: "autosize", Value: model.Bool(true)},
	{Key: "height", Value: model.Number(400)},
	{Key: "margin", Value: model.Object(
		model.Pair{Key: "t", Value: model.Number(40)},
		model.Pair{Key: "r", Value: model.Number(40)},
		model.Pair{Key: "b", Value: model.Number(40)},
		model.Pair{Key: "l", Value: model.Number(60)},
	)},
}

var plotConfig = model.Object(
	model.Pair{Key: "displayModeBar", Value: model.Bool(true)},
	model.Pair{Key: "displaylogo", Value: model.Bool(false)},
	model.Pair{Key: "responsive", Value: model.Bool(true)},
)

// plotSpec is the JSON handed to Plotly.newPlot: the chart's traces, its
// layout with the card's overrides, and the fixed toolbar config. It returns
// "" when the chart cannot be encoded; the page then shows the render error.
func plotSpec(chart model.ChartConfig) string {
	data := chart.Data.Field("data")
	if data.Kind() != model.KindArray {
		data = model.Array()
	}

	spec := model.Object(
		model.Pair{Key: "data", Value: data},
		model.Pair{Key: "layout", Value: mergeLayout(chart.Data.Field("layout"))},
		model.Pair{Key: "config", Value: plotConfig},
	)
	raw, err := spec.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(raw)
}

func mergeLayout(layout model.Value) model.Value {
	overridden := make(map[string]bool, len(layoutOverrides))
	for _, p := range layoutOverrides {
		overridden[p.Key] = true
	}

	var pairs []model.Pair
	for _, k := range layout.Keys() {
		if !overridden[k] {
			pairs = append(pairs, model.Pair{Key: k, Value: layout.Field(k)})
		}
	}
	pairs = append(pairs, layoutOverrides...)
	return model.Object(pairs...)
}
