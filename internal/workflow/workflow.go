// Package workflow holds the page state machines of the web client. Every
// workflow is a plain JSON-serialisable struct so it can live in any session
// store; transitions are methods that report illegal moves as errors.
package workflow

import (
	"errors"
	"net/url"
	"unicode/utf8"

	"github.com/wzyjerry/data-agent-web/internal/backend"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/validation"
)

// Phase is the position of an analysis or prediction workflow.
type Phase string

const (
	PhaseNoDataset  Phase = "no-dataset"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
	PhaseResult     Phase = "result"
)

// Notice levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a one-shot message shown on the next render.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func notice(level, text string) *Notice {
	return &Notice{Level: level, Text: text}
}

// StateError is an illegal transition. Text is what the page shows.
type StateError struct {
	Code string
	Text string
}

func (e *StateError) Error() string {
	return "workflow: " + e.Code
}

var (
	// ErrBusy rejects a transition while the same workflow waits on the backend.
	ErrBusy = &StateError{Code: "busy", Text: "正在处理中，请稍候"}
	// ErrNoDataset rejects a submission before a dataset is loaded.
	ErrNoDataset = &StateError{Code: "no dataset", Text: validation.MsgNoDataset}
	// ErrNoResult rejects redo and save when no result is held.
	ErrNoResult = &StateError{Code: "no result", Text: "当前没有结果"}
	// ErrNoSession rejects actions that need a signed-in user.
	ErrNoSession = &StateError{Code: "no session", Text: "请先登录"}
	// ErrSaved rejects saving the same result twice.
	ErrSaved = &StateError{Code: "already saved", Text: "该结果已保存到我的工作"}
	// ErrUnknownRecord rejects deleting a record that is not listed.
	ErrUnknownRecord = &StateError{Code: "unknown record", Text: "工作记录不存在"}
	// ErrNothingPending rejects a delete confirmation without a pending request.
	ErrNothingPending = &StateError{Code: "nothing pending", Text: "没有待确认的删除操作"}
)

// Describe turns an error into the text a page shows. fallback is used for
// backend failures that carry no detail.
func Describe(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.Text
	}
	if msg := validation.Message(err); msg != "" {
		return msg
	}
	return backend.Message(err, fallback)
}

// RecordPath is where a saved work record opens. Records that carry their
// dataset id open on the dataset's page with the result preselected.
func RecordPath(r model.WorkRecord) string {
	page := "/analysis"
	if r.Type == model.RecordPrediction {
		page = "/prediction"
	}
	if r.DatasetID != "" {
		page += "/" + url.PathEscape(r.DatasetID)
	}
	if r.ResultID != "" {
		page += "?result=" + url.QueryEscape(r.ResultID)
	}
	return page
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
