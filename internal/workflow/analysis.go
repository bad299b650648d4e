package workflow

import (
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/validation"
)

// Analysis is the analysis page: load or upload a dataset, ask a question,
// show the result.
type Analysis struct {
	Phase      Phase                 `json:"phase"`
	DatasetID  string                `json:"dataset_id,omitempty"`
	ResultID   string                `json:"result_id,omitempty"`
	Dataset    *model.Dataset        `json:"dataset,omitempty"`
	Preview    *model.DatasetPreview `json:"preview,omitempty"`
	LoadFailed bool                  `json:"load_failed,omitempty"`
	Query      string                `json:"query,omitempty"`
	Result     *model.AnalysisResult `json:"result,omitempty"`
	Saved      bool                  `json:"saved,omitempty"`
	Notice     *Notice               `json:"notice,omitempty"`
}

// NewAnalysis returns a workflow waiting for a dataset.
func NewAnalysis() Analysis {
	return Analysis{Phase: PhaseNoDataset}
}

// Mount resets the page for the given dataset and, optionally, a stored result
// to open. Both ids may be empty.
func (a *Analysis) Mount(datasetID, resultID string) {
	*a = Analysis{Phase: PhaseNoDataset, DatasetID: datasetID, ResultID: resultID}
}

// Matches reports whether the held state already shows the page the URL names.
func (a *Analysis) Matches(datasetID, resultID string) bool {
	if a.Phase == "" || a.DatasetID != datasetID {
		return false
	}
	return resultID == "" || a.ResultID == resultID
}

// NeedsDataset reports whether the dataset named by the URL still has to be fetched.
func (a *Analysis) NeedsDataset() bool {
	return a.DatasetID != "" && a.Dataset == nil && !a.LoadFailed
}

// NeedsResult reports whether a stored result still has to be fetched.
func (a *Analysis) NeedsResult() bool {
	return a.ResultID != "" && a.Result == nil && !a.LoadFailed
}

// DatasetLoaded installs the fetched dataset.
func (a *Analysis) DatasetLoaded(ds *model.Dataset) {
	a.Dataset = ds
	a.DatasetID = ds.ID
	a.LoadFailed = false
	if a.Phase == PhaseNoDataset || a.Phase == "" {
		a.Phase = PhaseReady
	}
}

// DatasetFailed keeps the uploader visible and reports the failure.
func (a *Analysis) DatasetFailed(err error) {
	a.Dataset = nil
	a.Preview = nil
	a.LoadFailed = true
	a.Phase = PhaseNoDataset
	a.Notice = notice(LevelError, Describe(err, "加载数据集失败"))
}

// PreviewLoaded attaches the first rows of the dataset. A missing preview is
// not an error.
func (a *Analysis) PreviewLoaded(p *model.DatasetPreview) {
	if a.Dataset != nil && p != nil && p.DatasetID == a.Dataset.ID {
		a.Preview = p
	}
}

// Uploaded starts over with a freshly uploaded dataset.
func (a *Analysis) Uploaded(ds *model.Dataset) {
	a.Mount(ds.ID, "")
	a.DatasetLoaded(ds)
	a.Notice = notice(LevelSuccess, "文件上传成功！")
}

// BeginSubmit validates the query and moves to submitting. It is only legal
// from ready; no request may be sent when it fails.
func (a *Analysis) BeginSubmit(query string) (model.AnalysisRequest, error) {
	if a.Phase == PhaseSubmitting || a.Phase == PhaseResult {
		return model.AnalysisRequest{}, a.reject(ErrBusy)
	}
	if a.Dataset == nil {
		return model.AnalysisRequest{}, a.reject(ErrNoDataset)
	}
	a.Query = query

	form := validation.AnalysisForm{DatasetID: a.Dataset.ID, Query: query}
	if err := form.Validate(); err != nil {
		return model.AnalysisRequest{}, a.reject(err)
	}

	a.Phase = PhaseSubmitting
	a.Notice = nil
	return model.AnalysisRequest{
		DatasetID:       a.Dataset.ID,
		UserQuery:       strings.TrimSpace(query),
		DataDescription: a.Dataset.Description,
	}, nil
}

// Complete installs the analysis result. It is ignored unless a submission
// for the same dataset is outstanding.
func (a *Analysis) Complete(result *model.AnalysisResult) bool {
	if a.Phase != PhaseSubmitting || a.Dataset == nil || (result.DatasetID != "" && result.DatasetID != a.Dataset.ID) {
		return false
	}
	a.Result = result
	a.ResultID = result.AnalysisID
	a.Saved = false
	a.Phase = PhaseResult
	a.Notice = notice(LevelSuccess, "分析完成！")
	return true
}

// Fail returns to ready without a result.
func (a *Analysis) Fail(err error) bool {
	if a.Phase != PhaseSubmitting {
		return false
	}
	a.Result = nil
	a.Phase = PhaseReady
	a.Notice = notice(LevelError, Describe(err, "分析失败"))
	return true
}

// Redo drops the result and shows the form again for the same dataset.
func (a *Analysis) Redo() error {
	if a.Result == nil {
		return a.reject(ErrNoResult)
	}
	a.Result = nil
	a.ResultID = ""
	a.Saved = false
	if a.Dataset != nil {
		a.Phase = PhaseReady
	} else {
		a.Phase = PhaseNoDataset
	}
	return nil
}

// ShowResult opens a stored result, e.g. from the workspace.
func (a *Analysis) ShowResult(result *model.AnalysisResult) {
	a.Result = result
	a.ResultID = result.AnalysisID
	a.Saved = true
	if a.DatasetID == "" {
		a.DatasetID = result.DatasetID
	}
	a.Phase = PhaseResult
}

// ResultFailed reports a stored result that could not be opened.
func (a *Analysis) ResultFailed(err error) {
	a.LoadFailed = true
	a.ResultID = ""
	if a.Dataset != nil {
		a.Phase = PhaseReady
	}
	a.Notice = notice(LevelError, Describe(err, "加载分析结果失败"))
}

// Record describes the held result as a work record for userID. The caller
// assigns the record id and timestamps.
func (a *Analysis) Record(userID string) (model.WorkRecord, error) {
	if userID == "" {
		return model.WorkRecord{}, a.reject(ErrNoSession)
	}
	if a.Result == nil {
		return model.WorkRecord{}, a.reject(ErrNoResult)
	}
	if a.Saved {
		return model.WorkRecord{}, a.reject(ErrSaved)
	}

	title := "数据分析"
	if q := strings.TrimSpace(a.Query); q != "" {
		title = truncate(q, 30)
	}
	rec := model.WorkRecord{
		UserID:      userID,
		Title:       title,
		Type:        model.RecordAnalysis,
		Description: truncate(a.Result.Summary, 100),
		ResultID:    a.Result.AnalysisID,
		DatasetID:   a.Result.DatasetID,
	}
	if a.Dataset != nil {
		rec.DatasetName = a.Dataset.Filename
	}
	return rec, nil
}

// SaveDone marks the held result as saved.
func (a *Analysis) SaveDone() {
	a.Saved = true
	a.Notice = notice(LevelSuccess, "已保存到我的工作")
}

// SaveFailed reports a failed save.
func (a *Analysis) SaveFailed(err error) {
	a.Notice = notice(LevelError, Describe(err, "保存失败"))
}

// TakeNotice returns the pending notice and clears it.
func (a *Analysis) TakeNotice() *Notice {
	n := a.Notice
	a.Notice = nil
	return n
}

func (a *Analysis) reject(err error) error {
	a.Notice = notice(LevelError, Describe(err, ""))
	return err
}
