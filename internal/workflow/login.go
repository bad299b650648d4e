package workflow

import (
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/validation"
)

// Mode selects the form shown on the login page.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Login is the login/register page.
type Login struct {
	Mode     Mode    `json:"mode"`
	Busy     bool    `json:"busy,omitempty"`
	Username string  `json:"username,omitempty"`
	Notice   *Notice `json:"notice,omitempty"`
}

// NewLogin returns the page in login mode.
func NewLogin() Login {
	return Login{Mode: ModeLogin}
}

// Mount resets the page but keeps a prefilled username.
func (l *Login) Mount() {
	username := l.Username
	*l = NewLogin()
	l.Username = username
}

// SetMode switches between the login and register forms.
func (l *Login) SetMode(mode Mode) error {
	if l.Busy {
		return l.reject(ErrBusy)
	}
	if mode != ModeRegister {
		mode = ModeLogin
	}
	l.Mode = mode
	return nil
}

// BeginLogin validates the login form.
func (l *Login) BeginLogin(form validation.LoginForm) error {
	if l.Busy {
		return l.reject(ErrBusy)
	}
	l.Username = form.Username
	if err := form.Validate(); err != nil {
		return l.reject(err)
	}
	l.Busy = true
	l.Notice = nil
	return nil
}

// LoginDone ends a successful sign-in.
func (l *Login) LoginDone() {
	l.Busy = false
}

// LoginFailed reports a failed sign-in.
func (l *Login) LoginFailed(err error) {
	l.Busy = false
	l.Notice = notice(LevelError, Describe(err, "登录失败"))
}

// BeginRegister validates the registration form and returns it normalized.
func (l *Login) BeginRegister(form validation.RegisterForm) (validation.RegisterForm, error) {
	if l.Busy {
		return form, l.reject(ErrBusy)
	}
	form = form.Normalize()
	l.Username = form.Username
	if err := form.Validate(); err != nil {
		return form, l.reject(err)
	}
	l.Busy = true
	l.Notice = nil
	return form, nil
}

// Registered switches back to login with the new username prefilled.
func (l *Login) Registered(info *model.UserInfo) {
	l.Busy = false
	l.Mode = ModeLogin
	if info != nil && info.Username != "" {
		l.Username = info.Username
	}
	l.Notice = notice(LevelSuccess, "注册成功！请登录")
}

// RegisterFailed reports a failed registration and stays in register mode.
func (l *Login) RegisterFailed(err error) {
	l.Busy = false
	l.Notice = notice(LevelError, Describe(err, "注册失败"))
}

// Throttled reports a registration refused by the rate limiter.
func (l *Login) Throttled() {
	l.Notice = notice(LevelWarning, "注册请求过于频繁，请稍后再试")
}

// TakeNotice returns the pending notice and clears it.
func (l *Login) TakeNotice() *Notice {
	n := l.Notice
	l.Notice = nil
	return n
}

func (l *Login) reject(err error) error {
	l.Notice = notice(LevelError, Describe(err, ""))
	return err
}
