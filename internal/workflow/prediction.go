package workflow

import (
	"fmt"
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/validation"
)

// PredictionInput is the prediction form as submitted.
type PredictionInput struct {
	TargetColumn string
	ModelType    string
	Periods      int
	Query        string
}

// Prediction is the prediction page. The assumption check is advisory and
// never gates submission.
type Prediction struct {
	Phase        Phase                   `json:"phase"`
	DatasetID    string                  `json:"dataset_id,omitempty"`
	ResultID     string                  `json:"result_id,omitempty"`
	Dataset      *model.Dataset          `json:"dataset,omitempty"`
	LoadFailed   bool                    `json:"load_failed,omitempty"`
	TargetColumn string                  `json:"target_column,omitempty"`
	ModelType    string                  `json:"model_type,omitempty"`
	Periods      int                     `json:"periods"`
	Query        string                  `json:"query,omitempty"`
	Validating   bool                    `json:"validating,omitempty"`
	Report       *model.ValidationReport `json:"report,omitempty"`
	Result       *model.PredictionResult `json:"result,omitempty"`
	Saved        bool                    `json:"saved,omitempty"`
	Notice       *Notice                 `json:"notice,omitempty"`
}

// NewPrediction returns a workflow waiting for a dataset.
func NewPrediction() Prediction {
	return Prediction{Phase: PhaseNoDataset, Periods: validation.DefaultForecastPeriods}
}

// Mount resets the page for the given dataset and optional stored result.
func (p *Prediction) Mount(datasetID, resultID string) {
	*p = NewPrediction()
	p.DatasetID = datasetID
	p.ResultID = resultID
}

// Matches reports whether the held state already shows the page the URL names.
func (p *Prediction) Matches(datasetID, resultID string) bool {
	if p.Phase == "" || p.DatasetID != datasetID {
		return false
	}
	return resultID == "" || p.ResultID == resultID
}

// NeedsDataset reports whether the dataset named by the URL still has to be fetched.
func (p *Prediction) NeedsDataset() bool {
	return p.DatasetID != "" && p.Dataset == nil && !p.LoadFailed
}

// NeedsResult reports whether a stored result still has to be fetched.
func (p *Prediction) NeedsResult() bool {
	return p.ResultID != "" && p.Result == nil && !p.LoadFailed
}

// DatasetLoaded installs the fetched dataset.
func (p *Prediction) DatasetLoaded(ds *model.Dataset) {
	p.Dataset = ds
	p.DatasetID = ds.ID
	p.LoadFailed = false
	if p.TargetColumn != "" && !ds.HasColumn(p.TargetColumn) {
		p.TargetColumn = ""
	}
	if p.Phase == PhaseNoDataset || p.Phase == "" {
		p.Phase = PhaseReady
	}
}

// DatasetFailed keeps the uploader visible and reports the failure.
func (p *Prediction) DatasetFailed(err error) {
	p.Dataset = nil
	p.LoadFailed = true
	p.Phase = PhaseNoDataset
	p.Notice = notice(LevelError, Describe(err, "加载数据集失败"))
}

// Uploaded starts over with a freshly uploaded dataset.
func (p *Prediction) Uploaded(ds *model.Dataset) {
	p.Mount(ds.ID, "")
	p.DatasetLoaded(ds)
	p.Notice = notice(LevelSuccess, "文件上传成功！")
}

// TargetChoices are the columns a forecast can target.
func (p *Prediction) TargetChoices() []string {
	if p.Dataset == nil {
		return nil
	}
	return p.Dataset.NumericColumns()
}

// CanSubmit reports whether the held form may be submitted: a target column
// and a query are required, the assumption check is not.
func (p *Prediction) CanSubmit() bool {
	return p.Phase == PhaseReady && p.TargetColumn != "" && strings.TrimSpace(p.Query) != ""
}

// SetTarget changes the target column. A previous assumption report belongs
// to the old column and is dropped.
func (p *Prediction) SetTarget(column string) {
	if column != p.TargetColumn {
		p.Report = nil
	}
	p.TargetColumn = column
}

// BeginValidate starts the assumption check for column.
func (p *Prediction) BeginValidate(column string) (string, error) {
	if p.Validating || p.Phase == PhaseSubmitting {
		return "", p.reject(ErrBusy)
	}
	if p.Dataset == nil {
		return "", p.reject(ErrNoDataset)
	}
	p.SetTarget(column)

	form := validation.AssumptionCheckForm{DatasetID: p.Dataset.ID, TargetColumn: column}
	if err := form.Validate(); err != nil {
		return "", p.reject(err)
	}

	p.Validating = true
	p.Notice = nil
	return p.Dataset.ID, nil
}

// ValidationDone records the advisory report.
func (p *Prediction) ValidationDone(report *model.ValidationReport) {
	p.Validating = false
	p.Report = report
	if report.IsValid {
		p.Notice = notice(LevelSuccess, "数据验证通过！")
	} else {
		p.Notice = notice(LevelWarning, "数据不完全满足假设，将进行自动转换")
	}
}

// ValidationFailed reports a failed check. Submission stays possible.
func (p *Prediction) ValidationFailed(err error) {
	p.Validating = false
	p.Notice = notice(LevelError, Describe(err, "验证失败"))
}

// BeginSubmit validates the form and moves to submitting.
func (p *Prediction) BeginSubmit(in PredictionInput) (model.PredictionRequest, error) {
	if p.Phase == PhaseSubmitting || p.Phase == PhaseResult {
		return model.PredictionRequest{}, p.reject(ErrBusy)
	}
	if p.Dataset == nil {
		return model.PredictionRequest{}, p.reject(ErrNoDataset)
	}

	p.SetForm(in)

	form := validation.PredictionForm{
		DatasetID:    p.Dataset.ID,
		TargetColumn: in.TargetColumn,
		Query:        in.Query,
		ModelType:    in.ModelType,
		Periods:      in.Periods,
	}
	if err := form.Validate(); err != nil {
		return model.PredictionRequest{}, p.reject(err)
	}
	if !p.Dataset.HasColumn(in.TargetColumn) {
		return model.PredictionRequest{}, p.reject(&validation.Error{Field: "TargetColumn", Message: validation.MsgNoTarget})
	}

	p.Phase = PhaseSubmitting
	p.Notice = nil
	return model.PredictionRequest{
		DatasetID:       p.Dataset.ID,
		TargetColumn:    in.TargetColumn,
		PredictionQuery: strings.TrimSpace(in.Query),
		ModelType:       in.ModelType,
		ForecastPeriods: in.Periods,
	}, nil
}

// Complete installs the forecast. It is ignored unless a submission for the
// same dataset is outstanding.
func (p *Prediction) Complete(result *model.PredictionResult) bool {
	if p.Phase != PhaseSubmitting || p.Dataset == nil || (result.DatasetID != "" && result.DatasetID != p.Dataset.ID) {
		return false
	}
	p.Result = result
	p.ResultID = result.PredictionID
	p.Saved = false
	p.Phase = PhaseResult
	p.Notice = notice(LevelSuccess, "预测完成！")
	return true
}

// Fail returns to ready without a result.
func (p *Prediction) Fail(err error) bool {
	if p.Phase != PhaseSubmitting {
		return false
	}
	p.Result = nil
	p.Phase = PhaseReady
	p.Notice = notice(LevelError, Describe(err, "预测失败"))
	return true
}

// Redo drops the forecast and keeps the dataset and form values.
func (p *Prediction) Redo() error {
	if p.Result == nil {
		return p.reject(ErrNoResult)
	}
	p.Result = nil
	p.ResultID = ""
	p.Saved = false
	if p.Dataset != nil {
		p.Phase = PhaseReady
	} else {
		p.Phase = PhaseNoDataset
	}
	return nil
}

// ShowResult opens a stored forecast.
func (p *Prediction) ShowResult(result *model.PredictionResult) {
	p.Result = result
	p.ResultID = result.PredictionID
	p.Saved = true
	if p.DatasetID == "" {
		p.DatasetID = result.DatasetID
	}
	p.Phase = PhaseResult
}

// ResultFailed reports a stored forecast that could not be opened.
func (p *Prediction) ResultFailed(err error) {
	p.LoadFailed = true
	p.ResultID = ""
	if p.Dataset != nil {
		p.Phase = PhaseReady
	}
	p.Notice = notice(LevelError, Describe(err, "加载预测结果失败"))
}

// Record describes the held forecast as a work record for userID.
func (p *Prediction) Record(userID string) (model.WorkRecord, error) {
	if userID == "" {
		return model.WorkRecord{}, p.reject(ErrNoSession)
	}
	if p.Result == nil {
		return model.WorkRecord{}, p.reject(ErrNoResult)
	}
	if p.Saved {
		return model.WorkRecord{}, p.reject(ErrSaved)
	}

	title := "预测分析"
	if q := strings.TrimSpace(p.Query); q != "" {
		title = truncate(q, 30)
	}
	rec := model.WorkRecord{
		UserID:      userID,
		Title:       title,
		Type:        model.RecordPrediction,
		Description: fmt.Sprintf("模型 %s，预测 %d 期", p.Result.ModelName, len(p.Result.Predictions)),
		ResultID:    p.Result.PredictionID,
		DatasetID:   p.Result.DatasetID,
	}
	if p.TargetColumn != "" {
		rec.Description = fmt.Sprintf("目标列 %s，%s", p.TargetColumn, rec.Description)
	}
	if p.Dataset != nil {
		rec.DatasetName = p.Dataset.Filename
	}
	return rec, nil
}

// SaveDone marks the held forecast as saved.
func (p *Prediction) SaveDone() {
	p.Saved = true
	p.Notice = notice(LevelSuccess, "已保存到我的工作")
}

// SaveFailed reports a failed save.
func (p *Prediction) SaveFailed(err error) {
	p.Notice = notice(LevelError, Describe(err, "保存失败"))
}

// TakeNotice returns the pending notice and clears it.
func (p *Prediction) TakeNotice() *Notice {
	n := p.Notice
	p.Notice = nil
	return n
}

func (p *Prediction) reject(err error) error {
	p.Notice = notice(LevelError, Describe(err, ""))
	return err
}

// SetForm keeps the submitted form values without validating them.
func (p *Prediction) SetForm(in PredictionInput) {
	p.SetTarget(in.TargetColumn)
	p.ModelType = in.ModelType
	p.Periods = in.Periods
	p.Query = in.Query
}
