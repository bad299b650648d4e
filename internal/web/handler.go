// Package web serves the browser pages. Every action is a form POST that
// mutates the session's page state and redirects back to a GET.
package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/pkg/jwt"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

// Backend is the data-analysis service the pages talk to.
type Backend interface {
	UploadDataset(ctx context.Context, filename string, file io.Reader, description string) (*model.Dataset, error)
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	GetDatasetPreview(ctx context.Context, id string, rows int) (*model.DatasetPreview, error)

	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
	GetAnalysisResult(ctx context.Context, id string) (*model.AnalysisResult, error)

	Predict(ctx context.Context, req model.PredictionRequest) (*model.PredictionResult, error)
	GetPredictionResult(ctx context.Context, id string) (*model.PredictionResult, error)
	ValidateTimeSeries(ctx context.Context, datasetID, column string) (*model.ValidationReport, error)

	RegisterUser(ctx context.Context, username, email string) (*model.UserInfo, error)
	GetUserInfo(ctx context.Context, userID string) (*model.UserInfo, error)
	ListWorkRecords(ctx context.Context, userID string) ([]model.WorkRecord, error)
	AddWorkRecord(ctx context.Context, userID string, record model.WorkRecord) (*model.Ack, error)
	DeleteWorkRecord(ctx context.Context, userID, recordID string) error
}

// Options wires a Handler.
type Options struct {
	Backend Backend
	Store   session.Store
	Signer  *jwt.Signer
	Auth    session.Authenticator
	Limiter *session.RegisterLimiter
	Upload  validation.UploadRules
	Logger  *zap.Logger
	// SecureCookie marks the session cookie Secure; enable behind TLS.
	SecureCookie bool
}

// Handler serves all pages.
type Handler struct {
	backend Backend
	store   session.Store
	signer  *jwt.Signer
	auth    session.Authenticator
	limiter *session.RegisterLimiter
	upload  validation.UploadRules
	log     *zap.Logger
	secure  bool
	tmpl    *template.Template
}

// NewHandler parses the page templates and returns a ready handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Backend == nil || opts.Store == nil || opts.Signer == nil {
		return nil, errors.New("web: backend, store and signer are required")
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	upload := opts.Upload
	if len(upload.Extensions) == 0 {
		upload = validation.DefaultUploadRules()
	}
	return &Handler{
		backend: opts.Backend,
		store:   opts.Store,
		signer:  opts.Signer,
		auth:    opts.Auth,
		limiter: opts.Limiter,
		upload:  upload,
		log:     log,
		secure:  opts.SecureCookie,
		tmpl:    tmpl,
	}, nil
}

// update applies fn to the session's state and returns the state as written.
// The store is reached with a context that outlives the request so a
// transition that follows a cancelled backend call is still recorded.
func (h *Handler) update(c *gin.Context, fn func(st *session.State)) (*session.State, error) {
	sess := currentSession(c)
	ctx := context.WithoutCancel(c.Request.Context())

	var snapshot *session.State
	err := h.store.Update(ctx, sess.ID, func(st *session.State) error {
		fn(st)
		snapshot = st
		return nil
	})
	if err != nil {
		h.log.Error("Failed to update session state",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return nil, err
	}
	return snapshot, nil
}

// act runs fn against the session state and redirects to target. A store
// failure is answered with 500.
func (h *Handler) act(c *gin.Context, target string, fn func(st *session.State)) {
	if _, err := h.update(c, fn); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// TabParam carries the browser tab id on page URLs and form actions.
const TabParam = "tab"

const (
	tabKey      = "tab"
	maxTabIDLen = 64
)

// tabID is the browser tab the request belongs to. A request without a usable
// id opens a new tab, so a link followed without one starts the page over.
func tabID(c *gin.Context) string {
	if v, ok := c.Get(tabKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	id := c.Query(TabParam)
	if !validTabID(id) {
		id = uuid.NewString()
	}
	c.Set(tabKey, id)
	return id
}

func validTabID(id string) bool {
	if id == "" || len(id) > maxTabIDLen {
		return false
	}
	for _, r := range id {
		if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// withTab sets the tab id on a local path, keeping its other query values.
func withTab(path, id string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(TabParam, id)
	u.RawQuery = q.Encode()
	return u.String()
}

// updateTab is update scoped to the browser tab of the request. It returns
// the written state and that tab.
func (h *Handler) updateTab(c *gin.Context, fn func(st *session.State, t *session.Tab)) (*session.State, *session.Tab, error) {
	id := tabID(c)
	st, err := h.update(c, func(st *session.State) {
		fn(st, st.Tab(id))
	})
	if err != nil {
		return nil, nil, err
	}
	t, _ := st.Lookup(id)
	return st, t, nil
}

// actTab runs fn against the request's tab and redirects to target in the
// same tab.
func (h *Handler) actTab(c *gin.Context, target string, fn func(st *session.State, t *session.Tab)) {
	if _, _, err := h.updateTab(c, fn); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, withTab(target, tabID(c)))
}

// stay redirects back to target in the request's tab without a state change.
func stay(c *gin.Context, target string) {
	c.Redirect(http.StatusSeeOther, withTab(target, tabID(c)))
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, "服务暂时不可用，请稍后重试")
}

// render writes a page; notices are the one-shot messages taken during the
// final state update.
func (h *Handler) render(c *gin.Context, name string, page *pageData) {
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, name, page)
}

// localPath keeps a redirect target on this site.
func localPath(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return next
}

func noticeList(ns ...*workflow.Notice) []*workflow.Notice {
	out := make([]*workflow.Notice, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
