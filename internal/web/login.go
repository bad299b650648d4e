package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

const loginPath = "/login"

// LoginPage renders the login or register form.
func (h *Handler) LoginPage(c *gin.Context) {
	var notices []*workflow.Notice
	st, t, err := h.updateTab(c, func(st *session.State, t *session.Tab) {
		t.Enter(session.PageLogin)
		notices = noticeList(st.TakeFlash(), t.Login.TakeNotice())
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	page := h.newPage(c, st, "登录", session.PageLogin)
	page.Login = &t.Login
	page.Notices = notices
	h.render(c, "login.html", page)
}

// SetLoginMode switches between the login and register forms.
func (h *Handler) SetLoginMode(c *gin.Context) {
	mode := workflow.Mode(c.PostForm("mode"))
	h.actTab(c, loginPath, func(_ *session.State, t *session.Tab) {
		t.Enter(session.PageLogin)
		_ = t.Login.SetMode(mode)
	})
}

// Login signs the session in and continues on the home page. The signed-in
// session gets a new id; the anonymous one is forgotten.
func (h *Handler) Login(c *gin.Context) {
	form := validation.LoginForm{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}

	var began bool
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		t.Enter(session.PageLogin)
		began = t.Login.BeginLogin(form) == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, loginPath)
		return
	}

	var (
		id      session.Identity
		authErr error = session.ErrInvalidCredentials
	)
	if h.auth != nil {
		id, authErr = h.auth.Authenticate(c.Request.Context(), form.Username, form.Password)
	}
	if authErr != nil {
		h.log.Info("Login refused", zap.String("username", form.Username), zap.Error(authErr))
		h.actTab(c, loginPath, func(_ *session.State, t *session.Tab) {
			t.Login.LoginFailed(authErr)
		})
		return
	}

	old := currentSession(c)
	sess := session.Session{
		ID:            uuid.NewString(),
		UserID:        id.UserID,
		Username:      id.Username,
		Authenticated: true,
	}
	if err := session.Move(context.WithoutCancel(c.Request.Context()), h.store, old.ID, sess.ID); err != nil {
		h.log.Error("Failed to move session state", zap.String("session_id", old.ID), zap.Error(err))
		h.fail(c, err)
		return
	}
	if err := h.issue(c, sess); err != nil {
		h.fail(c, err)
		return
	}
	c.Set(sessionKey, sess)

	h.log.Info("User logged in", zap.String("user_id", id.UserID), zap.String("username", id.Username))
	h.act(c, "/", func(st *session.State) {
		if t, ok := st.Lookup(tabID(c)); ok {
			t.Login.LoginDone()
		}
		st.SetFlash(workflow.LevelSuccess, "登录成功！")
	})
}

// Register creates a backend user and switches back to the login form.
func (h *Handler) Register(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		h.log.Warn("Registration throttled", zap.String("client_ip", c.ClientIP()))
		h.actTab(c, loginPath, func(_ *session.State, t *session.Tab) {
			t.Enter(session.PageLogin)
			t.Login.Throttled()
		})
		return
	}

	form := validation.RegisterForm{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Confirm:  c.PostForm("confirm"),
	}

	var began bool
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		t.Enter(session.PageLogin)
		t.Login.Mode = workflow.ModeRegister
		f, err := t.Login.BeginRegister(form)
		form, began = f, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, loginPath)
		return
	}

	info, regErr := h.backend.RegisterUser(c.Request.Context(), form.Username, form.Email)
	if regErr != nil {
		h.log.Warn("Registration failed", zap.String("username", form.Username), zap.Error(regErr))
	}
	h.actTab(c, loginPath, func(_ *session.State, t *session.Tab) {
		if regErr != nil {
			t.Login.RegisterFailed(regErr)
			return
		}
		t.Login.Registered(info)
	})
}

// Logout drops the session state and starts a fresh anonymous session.
func (h *Handler) Logout(c *gin.Context) {
	old := currentSession(c)
	if err := h.store.Delete(c.Request.Context(), old.ID); err != nil {
		h.log.Warn("Failed to drop session state", zap.String("session_id", old.ID), zap.Error(err))
	}

	sess := session.Anonymous(uuid.NewString())
	if err := h.issue(c, sess); err != nil {
		h.fail(c, err)
		return
	}
	c.Set(sessionKey, sess)
	c.Redirect(http.StatusSeeOther, loginPath)
}
