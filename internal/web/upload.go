package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

// multipartSlack covers the form fields and boundaries around the file.
const multipartSlack = 1 << 20

// Upload sends the selected file to the backend and opens it on the analysis
// or prediction page. A file the rules reject never reaches the backend.
// The ?from= query names the page the uploader sits on; uploads from the home
// page continue on the analysis page. Rejected uploads return to ?back=. The
// tab id travels in the query too since the body is only read under the size
// limit.
func (h *Handler) Upload(c *gin.Context) {
	from := c.Query("from")
	back := "/"
	switch from {
	case session.PageAnalysis:
		back = analysisPath("")
	case session.PagePrediction:
		back = predictionPath("")
	default:
		from = session.PageHome
	}
	back = localPath(c.Query("back"), back)

	limit := h.upload.MaxBytes + multipartSlack
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := validation.MsgNoFile
		if errors.As(err, &tooLarge) || c.Request.ContentLength > limit {
			msg = validation.MsgFileTooBig
		}
		h.flash(c, back, workflow.LevelError, msg)
		return
	}
	if err := h.upload.CheckFile(file.Filename, file.Size); err != nil {
		h.flash(c, back, workflow.LevelError, validation.Message(err))
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer src.Close()

	description := strings.TrimSpace(c.PostForm("description"))
	ds, err := h.backend.UploadDataset(c.Request.Context(), file.Filename, src, description)
	if err != nil {
		h.log.Warn("Dataset upload failed", zap.String("filename", file.Filename), zap.Error(err))
		h.flash(c, back, workflow.LevelError, workflow.Describe(err, "文件上传失败"))
		return
	}

	h.log.Info("Dataset uploaded",
		zap.String("dataset_id", ds.ID),
		zap.String("filename", ds.Filename),
		zap.Int64("size", file.Size))

	if from == session.PagePrediction {
		h.actTab(c, predictionPath(ds.ID), func(_ *session.State, t *session.Tab) {
			t.Enter(session.PagePrediction)
			t.Prediction.Uploaded(ds)
		})
		return
	}
	preview := h.fetchPreview(c, ds.ID)
	h.actTab(c, analysisPath(ds.ID), func(_ *session.State, t *session.Tab) {
		t.Enter(session.PageAnalysis)
		t.Analysis.Uploaded(ds)
		t.Analysis.PreviewLoaded(preview)
	})
}

// flash queues a notice for the next page and redirects there.
func (h *Handler) flash(c *gin.Context, target, level, text string) {
	h.act(c, target, func(st *session.State) {
		st.SetFlash(level, text)
	})
}
