package web

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wzyjerry/data-agent-web/internal/backend"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

func analysisPath(datasetID string) string {
	if datasetID == "" {
		return "/analysis"
	}
	return "/analysis/" + url.PathEscape(datasetID)
}

// AnalysisPage shows the analysis page for the dataset in the path. A
// ?result= query opens a stored result instead of the form. A page whose
// dataset or result failed to load starts over on the next visit.
func (h *Handler) AnalysisPage(c *gin.Context) {
	datasetID := c.Param("datasetId")
	resultID := c.Query("result")

	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Enter(session.PageAnalysis) || !t.Analysis.Matches(datasetID, resultID) || t.Analysis.LoadFailed {
			t.Analysis.Mount(datasetID, resultID)
		}
	})
	if err == nil {
		t, err = h.loadAnalysisDataset(c, t)
	}
	if err == nil {
		t, err = h.loadAnalysisResult(c, t)
	}
	if err == nil {
		// a stored result opened without a dataset in the path names its dataset
		t, err = h.loadAnalysisDataset(c, t)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	var notices []*workflow.Notice
	st, t, err := h.updateTab(c, func(st *session.State, t *session.Tab) {
		notices = noticeList(st.TakeFlash(), t.Analysis.TakeNotice())
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	page := h.newPage(c, st, "数据分析", session.PageAnalysis)
	page.Analysis = &t.Analysis
	page.UploadFrom = session.PageAnalysis
	page.Notices = notices
	h.render(c, "analysis.html", page)
}

// fetchPreview returns the first rows of a dataset, or nil when the backend
// has none to give.
func (h *Handler) fetchPreview(c *gin.Context, datasetID string) *model.DatasetPreview {
	p, err := h.backend.GetDatasetPreview(c.Request.Context(), datasetID, backend.DefaultPreviewRows)
	if err != nil {
		h.log.Debug("Dataset preview unavailable", zap.String("dataset_id", datasetID), zap.Error(err))
		return nil
	}
	return p
}

func (h *Handler) loadAnalysisDataset(c *gin.Context, t *session.Tab) (*session.Tab, error) {
	if !t.Analysis.NeedsDataset() {
		return t, nil
	}
	id := t.Analysis.DatasetID

	ds, loadErr := h.backend.GetDataset(c.Request.Context(), id)
	var preview *model.DatasetPreview
	if loadErr == nil {
		preview = h.fetchPreview(c, id)
	}

	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PageAnalysis || t.Analysis.DatasetID != id || !t.Analysis.NeedsDataset() {
			return
		}
		if loadErr != nil {
			t.Analysis.DatasetFailed(loadErr)
			return
		}
		t.Analysis.DatasetLoaded(ds)
		t.Analysis.PreviewLoaded(preview)
	})
	return t, err
}

func (h *Handler) loadAnalysisResult(c *gin.Context, t *session.Tab) (*session.Tab, error) {
	if !t.Analysis.NeedsResult() {
		return t, nil
	}
	id := t.Analysis.ResultID

	res, loadErr := h.backend.GetAnalysisResult(c.Request.Context(), id)
	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PageAnalysis || t.Analysis.ResultID != id || !t.Analysis.NeedsResult() {
			return
		}
		if loadErr != nil {
			t.Analysis.ResultFailed(loadErr)
			return
		}
		t.Analysis.ShowResult(res)
	})
	return t, err
}

// SubmitAnalysis sends the question to the backend and waits for the result.
// A second submission while one is outstanding is refused. A result whose tab
// has moved on is opened as a stored result instead of being dropped.
func (h *Handler) SubmitAnalysis(c *gin.Context) {
	datasetID := c.Param("datasetId")
	target := analysisPath(datasetID)

	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Enter(session.PageAnalysis) || t.Analysis.DatasetID != datasetID || t.Analysis.LoadFailed {
			t.Analysis.Mount(datasetID, "")
		}
	})
	if err == nil {
		_, err = h.loadAnalysisDataset(c, t)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	query := c.PostForm("query")
	var (
		req   model.AnalysisRequest
		began bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		began = false
		if t.Page != session.PageAnalysis || t.Analysis.DatasetID != datasetID {
			return
		}
		r, err := t.Analysis.BeginSubmit(query)
		req, began = r, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, target)
		return
	}

	h.log.Info("Submitting analysis",
		zap.String("session_id", currentSession(c).ID),
		zap.String("dataset_id", req.DatasetID))
	res, callErr := h.backend.Analyze(c.Request.Context(), req)
	if callErr != nil {
		h.log.Warn("Analysis failed", zap.String("dataset_id", req.DatasetID), zap.Error(callErr))
	}

	var detached bool
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PageAnalysis {
			detached = callErr == nil
			return
		}
		if callErr != nil {
			t.Analysis.Fail(callErr)
			return
		}
		detached = !t.Analysis.Complete(res)
	}); err != nil {
		h.fail(c, err)
		return
	}
	if detached && res.AnalysisID != "" {
		h.log.Info("Opening analysis result outside its tab", zap.String("analysis_id", res.AnalysisID))
		target = resultPath(analysisPath(res.DatasetID), res.AnalysisID)
	}
	stay(c, target)
}

// RedoAnalysis drops the result and shows the form again.
func (h *Handler) RedoAnalysis(c *gin.Context) {
	datasetID := c.Param("datasetId")
	h.actTab(c, analysisPath(datasetID), func(_ *session.State, t *session.Tab) {
		if t.Page == session.PageAnalysis && t.Analysis.DatasetID == datasetID {
			_ = t.Analysis.Redo()
		}
	})
}

// SaveAnalysis stores the shown result as a work record.
func (h *Handler) SaveAnalysis(c *gin.Context) {
	datasetID := c.Param("datasetId")
	target := analysisPath(datasetID)
	sess := currentSession(c)

	var (
		rec model.WorkRecord
		ok  bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		ok = false
		if t.Page != session.PageAnalysis || t.Analysis.DatasetID != datasetID {
			return
		}
		r, err := t.Analysis.Record(userID(sess))
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
		if t.Page != session.PageAnalysis || t.Analysis.Result == nil || t.Analysis.Result.AnalysisID != rec.ResultID {
			return
		}
		if saveErr != nil {
			t.Analysis.SaveFailed(saveErr)
			return
		}
		t.Analysis.SaveDone()
	})
}

// resultPath opens a stored result on the page at base.
func resultPath(base, resultID string) string {
	return base + "?result=" + url.QueryEscape(resultID)
}

// userID is the id work records are saved under; anonymous sessions have none.
func userID(sess session.Session) string {
	if !sess.Authenticated {
		return ""
	}
	return sess.UserID
}

func stampRecord(rec *model.WorkRecord) {
	now := model.NewTimestamp(time.Now())
	rec.RecordID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
}
