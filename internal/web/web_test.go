package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wzyjerry/data-agent-web/internal/backend"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/pkg/jwt"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	datasetJSON    = `{"id":"ds-1","filename":"sales.csv","format":"csv","upload_time":"2024-03-01T10:20:30","rows":1200,"columns":2,"column_names":["date","revenue"],"data_types":{"date":"object","revenue":"float64"},"description":"monthly sales"}`
	previewJSON    = `{"dataset_id":"ds-1","rows":1,"columns":["date","revenue"],"data":[{"date":"2024-01","revenue":12.5}]}`
	analysisJSON   = `{"analysis_id":"an-1","dataset_id":"ds-1","summary":"Revenue grows steadily","insights":["Q4 peaks"],"charts":[{"type":"line","title":"Revenue trend","data":{"data":[{"x":[1,2],"y":[3,4]}],"layout":{"title":"Revenue"}}}],"statistics":{"revenue":{"mean":12.5}},"created_at":"2024-03-01T10:21:00"}`
	predictionJSON = `{"prediction_id":"pr-1","dataset_id":"ds-1","model_name":"arima","predictions":[1,2.5],"metrics":{"mae":0.5,"rmse":1.25},"validation_passed":true,"validation_details":{},"chart":{"type":"line","title":"Forecast"},"created_at":"2024-03-01T10:22:00"}`
	recordsJSON    = `[{"record_id":"rec-1","user_id":"u-1","title":"季度收入分析","type":"analysis","dataset_name":"sales.csv","description":"收入稳定增长","created_at":"2024-03-01T10:21:00","updated_at":"2024-03-01T10:21:00","result_id":"an-1","dataset_id":"ds-1"}]`
)

// fakeBackend answers the backend endpoints the pages use and counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	saved []model.WorkRecord

	validateStatus int
	deleteStatus   int
	// datasetFailures is the number of dataset lookups answered with 503
	// before the dataset is served.
	datasetFailures int
	// analyzeGate, when set, holds analyze calls until it is closed.
	analyzeGate chan struct{}
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	f := &fakeBackend{
		calls:          make(map[string]int),
		validateStatus: http.StatusOK,
		deleteStatus:   http.StatusOK,
	}

	mux := http.NewServeMux()
	reply := func(name string, status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.hit(name)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}
	}

	mux.HandleFunc("POST /api/upload/dataset", reply("upload", http.StatusOK, datasetJSON))
	mux.HandleFunc("GET /api/upload/dataset/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "ds-1" {
			reply("dataset", http.StatusNotFound, `{"detail":"Dataset not found"}`)(w, r)
			return
		}
		if f.takeDatasetFailure() {
			reply("dataset", http.StatusServiceUnavailable, `{"detail":"dataset store unavailable"}`)(w, r)
			return
		}
		reply("dataset", http.StatusOK, datasetJSON)(w, r)
	})
	mux.HandleFunc("GET /api/upload/dataset/{id}/preview", reply("preview", http.StatusOK, previewJSON))
	mux.HandleFunc("POST /api/analysis/analyze", func(w http.ResponseWriter, r *http.Request) {
		if f.analyzeGate != nil {
			f.hit("analyze-started")
			<-f.analyzeGate
		}
		reply("analyze", http.StatusOK, analysisJSON)(w, r)
	})
	mux.HandleFunc("GET /api/analysis/result/{id}", reply("analysis-result", http.StatusOK, analysisJSON))
	mux.HandleFunc("POST /api/prediction/predict", reply("predict", http.StatusOK, predictionJSON))
	mux.HandleFunc("GET /api/prediction/result/{id}", reply("prediction-result", http.StatusOK, predictionJSON))
	mux.HandleFunc("POST /api/prediction/validate/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.validateStatus != http.StatusOK {
			reply("validate", f.validateStatus, `{"detail":"column not numeric"}`)(w, r)
			return
		}
		reply("validate", http.StatusOK, `{"is_valid":false,"tests":{},"recommendations":["建议差分"]}`)(w, r)
	})
	mux.HandleFunc("POST /api/user/register", reply("register", http.StatusOK, `{"user_id":"u-2","username":"bob","created_at":"2024-03-01T10:00:00"}`))
	mux.HandleFunc("GET /api/user/info/{id}", reply("user-info", http.StatusOK, `{"user_id":"u-1","username":"alice","created_at":"2024-03-01T10:00:00"}`))
	mux.HandleFunc("GET /api/user/records/{uid}", reply("records", http.StatusOK, recordsJSON))
	mux.HandleFunc("POST /api/user/records/{uid}", func(w http.ResponseWriter, r *http.Request) {
		var rec model.WorkRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err == nil {
			f.mu.Lock()
			f.saved = append(f.saved, rec)
			f.mu.Unlock()
		}
		reply("save", http.StatusOK, `{"message":"ok"}`)(w, r)
	})
	mux.HandleFunc("DELETE /api/user/records/{uid}/{rid}", func(w http.ResponseWriter, r *http.Request) {
		if f.deleteStatus != http.StatusOK {
			reply("delete", f.deleteStatus, `{"detail":"storage unavailable"}`)(w, r)
			return
		}
		reply("delete", http.StatusOK, `{"message":"deleted"}`)(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) takeDatasetFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.datasetFailures == 0 {
		return false
	}
	f.datasetFailures--
	return true
}

// browser drives the engine like a browser: it keeps cookies between requests.
type browser struct {
	t       *testing.T
	engine  *gin.Engine
	store   *session.MemoryStore
	signer  *jwt.Signer
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, backendURL string) *browser {
	client := backend.New(backend.Config{BaseURL: backendURL, Timeout: 5 * time.Second}, nil)
	store := session.NewMemoryStore(time.Hour)
	signer := jwt.NewSigner("test-secret", time.Hour)
	h, err := NewHandler(Options{
		Backend: client,
		Store:   store,
		Signer:  signer,
		Auth:    session.StubAuthenticator{UserID: "u-1"},
		Limiter: session.NewRegisterLimiter(5*time.Minute, 2),
	})
	require.NoError(t, err)
	return &browser{
		t:       t,
		engine:  h.NewRouter(),
		store:   store,
		signer:  signer,
		cookies: make(map[string]*http.Cookie),
	}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(formRequest(path, form))
}

// postAsync sends a form without waiting for the answer.
func (b *browser) postAsync(path string, form url.Values) <-chan *httptest.ResponseRecorder {
	req := formRequest(path, form)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		b.engine.ServeHTTP(w, req)
		done <- w
	}()
	return done
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (b *browser) upload(path, filename, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, _ = io.WriteString(fw, content)
	require.NoError(b.t, mw.WriteField("description", "monthly sales"))
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

// page fetches path and returns the rendered HTML.
func (b *browser) page(path string) string {
	w := b.get(path)
	require.Equal(b.t, http.StatusOK, w.Code, path)
	return w.Body.String()
}

// sessionID reads the session id out of the current cookie.
func (b *browser) sessionID() string {
	c, ok := b.cookies[CookieName]
	require.True(b.t, ok)
	claims, err := b.signer.ValidateToken(c.Value)
	require.NoError(b.t, err)
	return claims.SessionID
}

// redirected asserts a post-redirect-get answer and returns its target.
func redirected(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	return w.Header().Get("Location")
}

func splitTarget(t *testing.T, target string) (path, tab string) {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	return u.Path, u.Query().Get(TabParam)
}

func login(t *testing.T, b *browser) {
	t.Helper()
	w := b.post("/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	assert.Equal(t, "/", redirected(t, w))
}

func TestHealth(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	w := b.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	w := b.get("/does/not/exist")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestHomeIssuesAnonymousSession(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	html := b.page("/")
	assert.Contains(t, html, "欢迎使用数据分析Agent")
	assert.Contains(t, html, "未登录")
	assert.Contains(t, html, "核心功能")
	require.Contains(t, b.cookies, CookieName)
	assert.True(t, b.cookies[CookieName].HttpOnly)
}

func TestForgedCookieStartsNewSession(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)
	b.cookies[CookieName] = &http.Cookie{Name: CookieName, Value: "not-a-token"}

	html := b.page("/")
	assert.Contains(t, html, "未登录")
	assert.NotEqual(t, "not-a-token", b.cookies[CookieName].Value)
}

func TestTabID(t *testing.T) {
	assert.True(t, validTabID("0b7c3a52-5b1e-4f7e-9d57-3f0c2a7b8e10"))
	assert.False(t, validTabID(""))
	assert.False(t, validTabID("a b"))
	assert.False(t, validTabID("<script>"))
	assert.False(t, validTabID(strings.Repeat("a", maxTabIDLen+1)))

	assert.Equal(t, "/analysis/ds-1?tab=t1", withTab("/analysis/ds-1", "t1"))
	assert.Equal(t, "/analysis/ds-1?result=an-1&tab=t1", withTab("/analysis/ds-1?result=an-1", "t1"))
	assert.Equal(t, "/workspace?tab=t2", withTab("/workspace?tab=t1", "t2"))
}

func TestAnalysisUnknownDatasetShowsUploader(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	html := b.page("/analysis/xyz")
	assert.Contains(t, html, "Dataset not found")
	assert.Contains(t, html, "上传数据")
	assert.NotContains(t, html, "描述您的分析需求")
	assert.Equal(t, 1, fb.count("dataset"))
}

func TestAnalysisReloadAfterFailedLoad(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.datasetFailures = 1
	b := newBrowser(t, srv.URL)

	html := b.page("/analysis/ds-1?tab=a1")
	assert.Contains(t, html, "dataset store unavailable")
	assert.NotContains(t, html, "描述您的分析需求")

	html = b.page("/analysis/ds-1?tab=a1")
	assert.Contains(t, html, "数据集信息")
	assert.Contains(t, html, "描述您的分析需求")
	assert.Equal(t, 2, fb.count("dataset"))
}

func TestPredictionReloadAfterFailedLoad(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.datasetFailures = 1
	b := newBrowser(t, srv.URL)

	html := b.page("/prediction/ds-1?tab=p1")
	assert.Contains(t, html, "dataset store unavailable")
	assert.NotContains(t, html, "预测配置")

	html = b.page("/prediction/ds-1?tab=p1")
	assert.Contains(t, html, "预测配置")
	assert.Equal(t, 2, fb.count("dataset"))
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	w := b.upload("/upload?from=analysis", "report.xlsx", "binary")
	assert.Equal(t, "/analysis", redirected(t, w))
	assert.Equal(t, 0, fb.count("upload"))

	html := b.page("/analysis")
	assert.Contains(t, html, "只支持CSV、JSON和TXT格式的文件！")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	// shrink the cap so the test does not need a 100 MiB body
	client := backend.New(backend.Config{BaseURL: srv.URL}, nil)
	h, err := NewHandler(Options{
		Backend: client,
		Store:   session.NewMemoryStore(time.Hour),
		Signer:  jwt.NewSigner("test-secret", time.Hour),
		Upload:  validation.NewUploadRules(nil, 16),
	})
	require.NoError(t, err)
	b.engine = h.NewRouter()

	w := b.upload("/upload?from=analysis", "big.csv", strings.Repeat("x", 16))
	assert.Equal(t, "/analysis", redirected(t, w))
	assert.Equal(t, 0, fb.count("upload"))
	assert.Contains(t, b.page("/analysis"), "文件大小不能超过100MB！")
}

func TestAnalysisFlow(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	w := b.upload("/upload?from=home", "sales.csv", "date,revenue\n2024-01,12.5\n")
	target := redirected(t, w)
	path, tab := splitTarget(t, target)
	assert.Equal(t, "/analysis/ds-1", path)
	require.NotEmpty(t, tab, "an upload without a tab opens one")
	assert.Equal(t, 1, fb.count("upload"))
	assert.Equal(t, 1, fb.count("preview"), "the upload fetches its preview")

	html := b.page(target)
	assert.Contains(t, html, "文件上传成功！")
	assert.Contains(t, html, "数据集信息")
	assert.Contains(t, html, "1,200")
	assert.Contains(t, html, "revenue (float64)")
	assert.Contains(t, html, "数据预览")
	assert.Contains(t, html, "2024-01")
	assert.Contains(t, html, "描述您的分析需求")
	assert.Contains(t, html, `action="/analysis/ds-1/submit?tab=`+tab+`"`)
	assert.Equal(t, 0, fb.count("dataset"), "an uploaded dataset is not fetched again")

	submit := "/analysis/ds-1/submit?tab=" + tab

	// a blank question never reaches the backend
	w = b.post(submit, url.Values{"query": {"   "}})
	assert.Equal(t, target, redirected(t, w))
	assert.Equal(t, 0, fb.count("analyze"))
	assert.Contains(t, b.page(target), "请输入分析需求")

	w = b.post(submit, url.Values{"query": {"分析收入趋势"}})
	assert.Equal(t, target, redirected(t, w))
	assert.Equal(t, 1, fb.count("analyze"))

	html = b.page(target)
	assert.Contains(t, html, "分析完成！")
	assert.Contains(t, html, "分析摘要")
	assert.Contains(t, html, "Revenue grows steadily")
	assert.Contains(t, html, "关键洞察")
	assert.Contains(t, html, "Q4 peaks")
	assert.Contains(t, html, "Revenue trend")
	assert.Contains(t, html, "data-plot=")
	assert.Contains(t, html, "统计数据")

	// a second submission is refused while the result is shown
	redirected(t, b.post(submit, url.Values{"query": {"again"}}))
	assert.Equal(t, 1, fb.count("analyze"))

	redirected(t, b.post("/analysis/ds-1/redo?tab="+tab, nil))
	html = b.page(target)
	assert.Contains(t, html, "描述您的分析需求")
	assert.Contains(t, html, "分析收入趋势", "redo keeps the question")
}

func TestAnalysisSubmitsAtMostOnce(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.analyzeGate = make(chan struct{})
	b := newBrowser(t, srv.URL)

	target := redirected(t, b.upload("/upload?from=analysis&tab=a1", "sales.csv", "a,b\n1,2\n"))
	assert.Equal(t, "/analysis/ds-1?tab=a1", target)

	form := url.Values{"query": {"分析收入趋势"}}
	done := b.postAsync("/analysis/ds-1/submit?tab=a1", form)
	require.Eventually(t, func() bool { return fb.count("analyze-started") == 1 }, 5*time.Second, 10*time.Millisecond)

	redirected(t, b.post("/analysis/ds-1/submit?tab=a1", form))
	html := b.page(target)
	assert.Contains(t, html, "正在分析数据，请稍候...")
	assert.Contains(t, html, "正在处理中，请稍候")

	close(fb.analyzeGate)
	assert.Equal(t, target, redirected(t, <-done))
	assert.Equal(t, 1, fb.count("analyze"))
	assert.Contains(t, b.page(target), "Revenue grows steadily")
}

func TestAnalysisResultSurvivesOtherTab(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.analyzeGate = make(chan struct{})
	b := newBrowser(t, srv.URL)

	target := redirected(t, b.upload("/upload?from=analysis&tab=a1", "sales.csv", "a,b\n1,2\n"))
	done := b.postAsync("/analysis/ds-1/submit?tab=a1", url.Values{"query": {"分析收入趋势"}})
	require.Eventually(t, func() bool { return fb.count("analyze-started") == 1 }, 5*time.Second, 10*time.Millisecond)

	// a second tab of the same browser goes elsewhere meanwhile
	assert.Contains(t, b.page("/workspace?tab=w1"), "请先登录后查看工作记录")

	close(fb.analyzeGate)
	assert.Equal(t, target, redirected(t, <-done))
	html := b.page(target)
	assert.Contains(t, html, "分析完成！")
	assert.Contains(t, html, "Revenue grows steadily")
	assert.Equal(t, 1, fb.count("analyze"))
	assert.Equal(t, 0, fb.count("analysis-result"))
}

func TestAnalysisResultOpensAfterTabMovedOn(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.analyzeGate = make(chan struct{})
	b := newBrowser(t, srv.URL)

	redirected(t, b.upload("/upload?from=analysis&tab=a1", "sales.csv", "a,b\n1,2\n"))
	done := b.postAsync("/analysis/ds-1/submit?tab=a1", url.Values{"query": {"分析收入趋势"}})
	require.Eventually(t, func() bool { return fb.count("analyze-started") == 1 }, 5*time.Second, 10*time.Millisecond)

	// the same tab navigates away before the answer arrives
	b.page("/workspace?tab=a1")

	close(fb.analyzeGate)
	target := redirected(t, <-done)
	assert.Equal(t, "/analysis/ds-1?result=an-1&tab=a1", target)
	assert.Contains(t, b.page(target), "Revenue grows steadily")
	assert.Equal(t, 1, fb.count("analyze"))
	assert.Equal(t, 1, fb.count("analysis-result"))
}

func TestOpenStoredAnalysisResult(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	html := b.page("/analysis?result=an-1")
	assert.Contains(t, html, "Revenue grows steadily")
	assert.Contains(t, html, "sales.csv", "the result names its dataset")
	assert.Contains(t, html, "已保存")
	assert.Equal(t, 1, fb.count("analysis-result"))
	assert.Equal(t, 1, fb.count("dataset"))
}

func TestSaveAnalysisRecord(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	target := redirected(t, b.upload("/upload?from=analysis&tab=a1", "sales.csv", "a,b\n1,2\n"))
	redirected(t, b.post("/analysis/ds-1/submit?tab=a1", url.Values{"query": {"分析收入趋势"}}))

	// anonymous sessions cannot save
	redirected(t, b.post("/analysis/ds-1/save?tab=a1", nil))
	assert.Contains(t, b.page(target), "请先登录")
	assert.Equal(t, 0, fb.count("save"))

	login(t, b)
	target = redirected(t, b.upload("/upload?from=analysis&tab=a2", "sales.csv", "a,b\n1,2\n"))
	redirected(t, b.post("/analysis/ds-1/submit?tab=a2", url.Values{"query": {"分析收入趋势"}}))
	redirected(t, b.post("/analysis/ds-1/save?tab=a2", nil))
	assert.Contains(t, b.page(target), "已保存到我的工作")

	require.Len(t, fb.saved, 1)
	rec := fb.saved[0]
	assert.Equal(t, "u-1", rec.UserID)
	assert.Equal(t, model.RecordAnalysis, rec.Type)
	assert.Equal(t, "an-1", rec.ResultID)
	assert.Equal(t, "ds-1", rec.DatasetID)
	assert.Equal(t, "sales.csv", rec.DatasetName)
	assert.NotEmpty(t, rec.RecordID)
}

func TestPredictionFlow(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	const target = "/prediction/ds-1?tab=p1"
	html := b.page(target)
	assert.Contains(t, html, "预测配置")
	assert.Contains(t, html, `<option value="revenue"`)
	assert.NotContains(t, html, `<option value="date"`, "only numeric columns are targets")

	// a failed assumption check does not block the forecast
	fb.validateStatus = http.StatusInternalServerError
	form := url.Values{
		"target_column": {"revenue"},
		"model_type":    {"arima"},
		"periods":       {"2"},
		"query":         {"预测未来两期收入"},
	}
	assert.Equal(t, target, redirected(t, b.post("/prediction/ds-1/validate?tab=p1", form)))
	html = b.page(target)
	assert.Contains(t, html, "column not numeric")
	assert.Contains(t, html, "预测未来两期收入", "the form is kept")

	assert.Equal(t, target, redirected(t, b.post("/prediction/ds-1/submit?tab=p1", form)))
	assert.Equal(t, 1, fb.count("predict"))

	html = b.page(target)
	assert.Contains(t, html, "预测完成！")
	assert.Contains(t, html, "ARIMA")
	assert.Contains(t, html, "通过")
	assert.Contains(t, html, "MAE")
	assert.Contains(t, html, "0.5000")
	assert.Contains(t, html, "1.2500")
	assert.Contains(t, html, "期数 1: 1.0000")
	assert.Contains(t, html, "期数 2: 2.5000")
	assert.Contains(t, html, "暂无图表数据")
}

func TestPredictionValidationReport(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	b.page("/prediction/ds-1?tab=p1")
	redirected(t, b.post("/prediction/ds-1/validate?tab=p1", url.Values{"target_column": {"revenue"}}))
	assert.Equal(t, 1, fb.count("validate"))

	html := b.page("/prediction/ds-1?tab=p1")
	assert.Contains(t, html, "验证警告")
	assert.Contains(t, html, "不完全满足")
	assert.Contains(t, html, "建议差分")
}

func TestPredictionRequiresTarget(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	b.page("/prediction/ds-1?tab=p1")
	redirected(t, b.post("/prediction/ds-1/submit?tab=p1", url.Values{"query": {"预测"}}))
	assert.Equal(t, 0, fb.count("predict"))
	assert.Contains(t, b.page("/prediction/ds-1?tab=p1"), "请选择目标列")
}

func TestWorkspaceAnonymousPromptsLogin(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	html := b.page("/workspace")
	assert.Contains(t, html, "请先登录后查看工作记录")
	assert.Equal(t, 0, fb.count("records"))

	w := b.post("/workspace/records/rec-1/delete", nil)
	assert.Equal(t, "/login", redirected(t, w))
}

func TestWorkspaceDelete(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)
	login(t, b)

	const target = "/workspace?tab=w1"
	html := b.page(target)
	assert.Contains(t, html, "季度收入分析")
	assert.Contains(t, html, "数据集: sales.csv")
	assert.Contains(t, html, `href="/analysis/ds-1?result=an-1"`)
	assert.Equal(t, 1, fb.count("records"))

	assert.Equal(t, target, redirected(t, b.post("/workspace/records/rec-1/delete?tab=w1", nil)))
	html = b.page(target)
	assert.Contains(t, html, "确认删除")
	assert.Contains(t, html, "确定要删除这条工作记录吗？")

	// the record stays listed when the backend refuses
	fb.deleteStatus = http.StatusInternalServerError
	redirected(t, b.post("/workspace/records/rec-1/confirm?tab=w1", nil))
	html = b.page(target)
	assert.Contains(t, html, "storage unavailable")
	assert.Contains(t, html, "季度收入分析")
	assert.NotContains(t, html, "确认删除")

	fb.deleteStatus = http.StatusOK
	redirected(t, b.post("/workspace/records/rec-1/delete?tab=w1", nil))
	redirected(t, b.post("/workspace/records/rec-1/confirm?tab=w1", nil))
	html = b.page(target)
	assert.Contains(t, html, "删除成功")
	assert.Contains(t, html, "暂无工作记录")
	assert.Equal(t, 2, fb.count("delete"))
	assert.Equal(t, 1, fb.count("records"), "the list is not refetched after a delete")
}

func TestWorkspaceCancelDelete(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)
	login(t, b)

	b.page("/workspace?tab=w1")
	redirected(t, b.post("/workspace/records/rec-1/delete?tab=w1", nil))
	redirected(t, b.post("/workspace/records/rec-1/cancel?tab=w1", nil))
	html := b.page("/workspace?tab=w1")
	assert.NotContains(t, html, "确认删除")
	assert.Contains(t, html, "季度收入分析")
	assert.Equal(t, 0, fb.count("delete"))
}

func TestLogin(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	html := b.page("/login?tab=l1")
	assert.Contains(t, html, "智能化数据分析和预测平台")
	assert.Contains(t, html, "💡 提示：这是演示版本，点击登录即可直接进入系统")

	w := b.post("/login?tab=l1", url.Values{"username": {""}, "password": {"x"}})
	assert.Equal(t, "/login?tab=l1", redirected(t, w))
	assert.Contains(t, b.page("/login?tab=l1"), "请输入用户名！")

	anonymous := b.cookies[CookieName].Value
	login(t, b)
	assert.NotEqual(t, anonymous, b.cookies[CookieName].Value)

	html = b.page("/")
	assert.Contains(t, html, "登录成功！")
	assert.Contains(t, html, "alice")
	assert.Contains(t, html, "退出登录")

	w = b.post("/logout", nil)
	assert.Equal(t, "/login", redirected(t, w))
	assert.Contains(t, b.page("/"), "未登录")
}

func TestLoginIssuesNewSessionID(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	b.page("/analysis/ds-1?tab=a1")
	before := b.sessionID()

	login(t, b)
	after := b.sessionID()
	require.NotEqual(t, before, after)

	ctx := context.Background()
	old, err := b.store.Load(ctx, before)
	require.NoError(t, err)
	assert.Empty(t, old.Tabs, "the anonymous session id is forgotten")

	st, err := b.store.Load(ctx, after)
	require.NoError(t, err)
	tab, ok := st.Lookup("a1")
	require.True(t, ok, "open tabs carry over to the new session")
	assert.Equal(t, session.PageAnalysis, tab.Page)
	require.NotNil(t, tab.Analysis.Dataset)
}

func TestRegister(t *testing.T) {
	fb, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	const target = "/login?tab=r1"
	assert.Equal(t, target, redirected(t, b.post("/login/mode?tab=r1", url.Values{"mode": {"register"}})))
	assert.Contains(t, b.page(target), "确认密码")

	form := url.Values{"username": {"bob"}, "password": {"secret1"}, "confirm": {"secret2"}}
	redirected(t, b.post("/register?tab=r1", form))
	assert.Contains(t, b.page(target), "两次密码不一致！")
	assert.Equal(t, 0, fb.count("register"))

	form.Set("confirm", "secret1")
	redirected(t, b.post("/register?tab=r1", form))
	assert.Equal(t, 1, fb.count("register"))
	html := b.page(target)
	assert.Contains(t, html, "注册成功！请登录")
	assert.Contains(t, html, `value="bob"`)

	// the limiter allows two attempts per window
	redirected(t, b.post("/register?tab=r1", form))
	assert.Contains(t, b.page(target), "注册请求过于频繁，请稍后再试")
	assert.Equal(t, 1, fb.count("register"))
}

func TestSidebarToggle(t *testing.T) {
	_, srv := newFakeBackend(t)
	b := newBrowser(t, srv.URL)

	w := b.post("/layout/sidebar", url.Values{"next": {"/workspace?tab=w1"}})
	assert.Equal(t, "/workspace?tab=w1", redirected(t, w))
	assert.Contains(t, b.page("/"), "sider collapsed")

	w = b.post("/layout/sidebar", url.Values{"next": {"//evil.example"}})
	assert.Equal(t, "/", redirected(t, w))
	assert.NotContains(t, b.page("/"), "sider collapsed")
}
