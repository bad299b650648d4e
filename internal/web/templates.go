package web

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageData is handed to every template. Only the fields of the rendered page
// are set.
type pageData struct {
	Title  string
	Active string
	// Tab is the browser tab id every form of the page posts back with.
	Tab       string
	Path      string
	Session   session.Session
	Collapsed bool
	Notices   []*workflow.Notice

	Upload     validation.UploadRules
	UploadFrom string

	Analysis   *workflow.Analysis
	Prediction *workflow.Prediction
	Workspace  *workflow.Workspace
	Login      *workflow.Login

	Models  []modelOption
	Periods periodBounds
	Limits  queryLimits
}

type modelOption struct {
	Value string
	Label string
}

type periodBounds struct {
	Min, Max int
}

type queryLimits struct {
	Analysis, Prediction int
}

var modelOptions = []modelOption{
	{Value: model.ModelARIMA, Label: "ARIMA"},
	{Value: model.ModelHoltWinters, Label: "Holt-Winters"},
	{Value: model.ModelExponentialSmoothing, Label: "指数平滑"},
}

func (h *Handler) newPage(c *gin.Context, st *session.State, title, active string) *pageData {
	return &pageData{
		Title:     title,
		Active:    active,
		Tab:       tabID(c),
		Path:      withTab(c.Request.URL.RequestURI(), tabID(c)),
		Session:   currentSession(c),
		Collapsed: st.SidebarCollapsed,
		Upload:    h.upload,
		Models:    modelOptions,
		Periods:   periodBounds{Min: validation.MinForecastPeriods, Max: validation.MaxForecastPeriods},
		Limits:    queryLimits{Analysis: validation.MaxAnalysisQuery, Prediction: validation.MaxPredictionQuery},
	}
}

var templateFuncs = template.FuncMap{
	"fixed4":     func(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) },
	"inc":        func(i int) int { return i + 1 },
	"upper":      strings.ToUpper,
	"thousands":  groupDigits,
	"plotSpec":   plotSpec,
	"recordPath": workflow.RecordPath,
	"recordType": recordTypeLabel,
	"pending":    pendingRecord,
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// groupDigits formats n with thousands separators.
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func recordTypeLabel(t string) string {
	if t == model.RecordPrediction {
		return "预测分析"
	}
	return "数据分析"
}
