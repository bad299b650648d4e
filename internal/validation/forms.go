package validation

import (
	"strings"
)

// Bounds of the analysis and prediction forms.
const (
	MaxAnalysisQuery   = 500
	MaxPredictionQuery = 300
	MinForecastPeriods = 1
	MaxForecastPeriods = 100
	// DefaultForecastPeriods is preselected in the prediction form.
	DefaultForecastPeriods = 10
)

// Messages shared by several forms.
const (
	MsgNoDataset     = "请先上传数据集"
	MsgNoTarget      = "请选择目标列"
	MsgSelectTarget  = "请先选择目标列"
	MsgAnalysisQuery = "请输入分析需求"
)

// AnalysisForm is the analysis request form.
type AnalysisForm struct {
	DatasetID string `validate:"required"`
	Query     string `validate:"notblank,max=500"`
}

var analysisMessages = map[string]string{
	"DatasetID.required": MsgNoDataset,
	"Query.notblank":     MsgAnalysisQuery,
	"Query.max":          "分析需求不能超过500个字符",
}

// Validate checks the form before an analysis is requested.
func (f AnalysisForm) Validate() error {
	return check(f, analysisMessages)
}

// PredictionForm is the prediction request form. ModelType may be empty to let
// the backend choose.
type PredictionForm struct {
	DatasetID    string `validate:"required"`
	TargetColumn string `validate:"required"`
	Query        string `validate:"notblank,max=300"`
	ModelType    string `validate:"omitempty,oneof=arima holtwinters exponential_smoothing"`
	Periods      int    `validate:"min=1,max=100"`
}

var predictionMessages = map[string]string{
	"DatasetID.required":    MsgNoDataset,
	"TargetColumn.required": MsgNoTarget,
	"Query.notblank":        "请描述预测需求",
	"Query.max":             "预测需求不能超过300个字符",
	"ModelType.oneof":       "不支持的模型类型",
	"Periods.min":           "预测期数必须在1到100之间",
	"Periods.max":           "预测期数必须在1到100之间",
}

// Validate checks the form before a prediction is requested.
func (f PredictionForm) Validate() error {
	return check(f, predictionMessages)
}

// AssumptionCheckForm selects the column whose time-series assumptions are checked.
type AssumptionCheckForm struct {
	DatasetID    string `validate:"required"`
	TargetColumn string `validate:"required"`
}

var assumptionMessages = map[string]string{
	"DatasetID.required":    MsgNoDataset,
	"TargetColumn.required": MsgSelectTarget,
}

// Validate checks the form before the assumptions are checked.
func (f AssumptionCheckForm) Validate() error {
	return check(f, assumptionMessages)
}

// LoginForm is the login form.
type LoginForm struct {
	Username string `validate:"notblank"`
	Password string `validate:"required"`
}

var loginMessages = map[string]string{
	"Username.notblank": "请输入用户名！",
	"Password.required": "请输入密码！",
}

// Validate checks the login form.
func (f LoginForm) Validate() error {
	return check(f, loginMessages)
}

// RegisterForm is the registration form. Email is optional.
type RegisterForm struct {
	Username string `validate:"notblank,min=3"`
	Email    string `validate:"omitempty,email"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"required,eqfield=Password"`
}

var registerMessages = map[string]string{
	"Username.notblank": "请输入用户名！",
	"Username.min":      "用户名至少3个字符！",
	"Email.email":       "请输入有效的邮箱地址！",
	"Password.required": "请输入密码！",
	"Password.min":      "密码至少6个字符！",
	"Confirm.required":  "请确认密码！",
	"Confirm.eqfield":   "两次密码不一致！",
}

// Normalize trims the free-text fields. Passwords are left untouched.
func (f RegisterForm) Normalize() RegisterForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	return f
}

// Validate checks the registration form.
func (f RegisterForm) Validate() error {
	return check(f.Normalize(), registerMessages)
}
