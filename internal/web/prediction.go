package web

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

func predictionPath(datasetID string) string {
	if datasetID == "" {
		return "/prediction"
	}
	return "/prediction/" + url.PathEscape(datasetID)
}

// predictionInput reads the prediction form. A blank period count falls back
// to the default; an unparsable one is left for validation to reject.
func predictionInput(c *gin.Context) workflow.PredictionInput {
	periods := validation.DefaultForecastPeriods
	if raw := strings.TrimSpace(c.PostForm("periods")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = 0
		}
		periods = n
	}
	return workflow.PredictionInput{
		TargetColumn: c.PostForm("target_column"),
		ModelType:    c.PostForm("model_type"),
		Periods:      periods,
		Query:        c.PostForm("query"),
	}
}

// PredictionPage shows the prediction page for the dataset in the path. A
// ?result= query opens a stored forecast.
func (h *Handler) PredictionPage(c *gin.Context) {
	datasetID := c.Param("datasetId")
	resultID := c.Query("result")

	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Enter(session.PagePrediction) || !t.Prediction.Matches(datasetID, resultID) || t.Prediction.LoadFailed {
			t.Prediction.Mount(datasetID, resultID)
		}
	})
	if err == nil {
		t, err = h.loadPredictionDataset(c, t)
	}
	if err == nil {
		t, err = h.loadPredictionResult(c, t)
	}
	if err == nil {
		t, err = h.loadPredictionDataset(c, t)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	var notices []*workflow.Notice
	st, t, err := h.updateTab(c, func(st *session.State, t *session.Tab) {
		notices = noticeList(st.TakeFlash(), t.Prediction.TakeNotice())
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	page := h.newPage(c, st, "预测分析", session.PagePrediction)
	page.Prediction = &t.Prediction
	page.UploadFrom = session.PagePrediction
	page.Notices = notices
	h.render(c, "prediction.html", page)
}

func (h *Handler) loadPredictionDataset(c *gin.Context, t *session.Tab) (*session.Tab, error) {
	if !t.Prediction.NeedsDataset() {
		return t, nil
	}
	id := t.Prediction.DatasetID

	ds, loadErr := h.backend.GetDataset(c.Request.Context(), id)
	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PagePrediction || t.Prediction.DatasetID != id || !t.Prediction.NeedsDataset() {
			return
		}
		if loadErr != nil {
			t.Prediction.DatasetFailed(loadErr)
			return
		}
		t.Prediction.DatasetLoaded(ds)
	})
	return t, err
}

func (h *Handler) loadPredictionResult(c *gin.Context, t *session.Tab) (*session.Tab, error) {
	if !t.Prediction.NeedsResult() {
		return t, nil
	}
	id := t.Prediction.ResultID

	res, loadErr := h.backend.GetPredictionResult(c.Request.Context(), id)
	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PagePrediction || t.Prediction.ResultID != id || !t.Prediction.NeedsResult() {
			return
		}
		if loadErr != nil {
			t.Prediction.ResultFailed(loadErr)
			return
		}
		t.Prediction.ShowResult(res)
	})
	return t, err
}

// mountPrediction makes sure the tab's prediction page holds datasetID before
// an action runs against it.
func (h *Handler) mountPrediction(c *gin.Context, datasetID string) error {
	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Enter(session.PagePrediction) || t.Prediction.DatasetID != datasetID || t.Prediction.LoadFailed {
			t.Prediction.Mount(datasetID, "")
		}
	})
	if err != nil {
		return err
	}
	_, err = h.loadPredictionDataset(c, t)
	return err
}

// ValidatePrediction runs the advisory assumption check for the chosen
// target column. The rest of the form is kept as entered.
func (h *Handler) ValidatePrediction(c *gin.Context) {
	datasetID := c.Param("datasetId")
	target := predictionPath(datasetID)
	if err := h.mountPrediction(c, datasetID); err != nil {
		h.fail(c, err)
		return
	}

	in := predictionInput(c)
	var (
		id    string
		began bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		began = false
		if t.Page != session.PagePrediction || t.Prediction.DatasetID != datasetID {
			return
		}
		t.Prediction.SetForm(in)
		dsID, err := t.Prediction.BeginValidate(in.TargetColumn)
		id, began = dsID, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, target)
		return
	}

	report, callErr := h.backend.ValidateTimeSeries(c.Request.Context(), id, in.TargetColumn)
	h.actTab(c, target, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PagePrediction || t.Prediction.DatasetID != datasetID || !t.Prediction.Validating {
			return
		}
		if callErr != nil {
			t.Prediction.ValidationFailed(callErr)
			return
		}
		// a report for a column that is no longer selected is dropped
		if t.Prediction.TargetColumn != in.TargetColumn {
			t.Prediction.Validating = false
			return
		}
		t.Prediction.ValidationDone(report)
	})
}

// SubmitPrediction sends the forecast request and waits for the result. A
// forecast whose tab has moved on is opened as a stored result.
func (h *Handler) SubmitPrediction(c *gin.Context) {
	datasetID := c.Param("datasetId")
	target := predictionPath(datasetID)
	if err := h.mountPrediction(c, datasetID); err != nil {
		h.fail(c, err)
		return
	}

	in := predictionInput(c)
	var (
		req   model.PredictionRequest
		began bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		began = false
		if t.Page != session.PagePrediction || t.Prediction.DatasetID != datasetID {
			return
		}
		r, err := t.Prediction.BeginSubmit(in)
		req, began = r, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, target)
		return
	}

	h.log.Info("Submitting prediction",
		zap.String("session_id", currentSession(c).ID),
		zap.String("dataset_id", req.DatasetID),
		zap.String("target_column", req.TargetColumn),
		zap.Int("periods", req.ForecastPeriods))
	res, callErr := h.backend.Predict(c.Request.Context(), req)
	if callErr != nil {
		h.log.Warn("Prediction failed", zap.String("dataset_id", req.DatasetID), zap.Error(callErr))
	}

	var detached bool
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PagePrediction {
			detached = callErr == nil
			return
		}
		if callErr != nil {
			t.Prediction.Fail(callErr)
			return
		}
		detached = !t.Prediction.Complete(res)
	}); err != nil {
		h.fail(c, err)
		return
	}
	if detached && res.PredictionID != "" {
		h.log.Info("Opening prediction result outside its tab", zap.String("prediction_id", res.PredictionID))
		target = resultPath(predictionPath(res.DatasetID), res.PredictionID)
	}
	stay(c, target)
}

// RedoPrediction drops the forecast and shows the form again.
func (h *Handler) RedoPrediction(c *gin.Context) {
	datasetID := c.Param("datasetId")
	h.actTab(c, predictionPath(datasetID), func(_ *session.State, t *session.Tab) {
		if t.Page == session.PagePrediction && t.Prediction.DatasetID == datasetID {
			_ = t.Prediction.Redo()
		}
	})
}

// SavePrediction stores the shown forecast as a work record.
func (h *Handler) SavePrediction(c *gin.Context) {
	datasetID := c.Param("datasetId")
	target := predictionPath(datasetID)
	sess := currentSession(c)

	var (
		rec model.WorkRecord
		ok  bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		ok = false
		if t.Page != session.PagePrediction || t.Prediction.DatasetID != datasetID {
			return
		}
		r, err := t.Prediction.Record(userID(sess))
		rec, ok = r, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		stay(c, target)
		return
	}

	stampRecord(&rec)
	_, saveErr := h.backend.AddWorkRecord(c.Request.Context(), sess.UserID, rec)
	h.actTab(c, target, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PagePrediction || t.Prediction.Result == nil || t.Prediction.Result.PredictionID != rec.ResultID {
			return
		}
		if saveErr != nil {
			t.Prediction.SaveFailed(saveErr)
			return
		}
		t.Prediction.SaveDone()
	})
}
