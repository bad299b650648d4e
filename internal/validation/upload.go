package validation

import (
	"strings"
)

// Upload messages.
const (
	MsgNoFile      = "请选择文件"
	MsgBadFormat   = "只支持CSV、JSON和TXT格式的文件！"
	MsgFileTooBig  = "文件大小不能超过100MB！"
	DefaultMaxSize = 100 << 20
)

// DefaultExtensions are the file suffixes the backend can parse.
var DefaultExtensions = []string{".csv", ".json", ".txt"}

// UploadRules bounds what the uploader accepts.
type UploadRules struct {
	Extensions []string
	MaxBytes   int64
}

// DefaultUploadRules returns the stock allow-list and the 100 MiB cap.
func DefaultUploadRules() UploadRules {
	return UploadRules{Extensions: DefaultExtensions, MaxBytes: DefaultMaxSize}
}

// NewUploadRules builds rules from configuration, falling back to the defaults
// for unset values.
func NewUploadRules(extensions []string, maxBytes int64) UploadRules {
	rules := DefaultUploadRules()
	if len(extensions) > 0 {
		rules.Extensions = extensions
	}
	if maxBytes > 0 {
		rules.MaxBytes = maxBytes
	}
	return rules
}

// CheckFile validates a selected file. The suffix match is case-sensitive and
// the size must be strictly below the cap.
func (r UploadRules) CheckFile(filename string, size int64) error {
	if filename == "" {
		return &Error{Field: "file", Message: MsgNoFile}
	}
	if !r.allowed(filename) {
		return &Error{Field: "file", Message: MsgBadFormat}
	}
	if size >= r.MaxBytes {
		return &Error{Field: "file", Message: MsgFileTooBig}
	}
	return nil
}

// Accept lists the extensions for an <input accept> attribute.
func (r UploadRules) Accept() string {
	return strings.Join(r.Extensions, ",")
}

func (r UploadRules) allowed(filename string) bool {
	for _, ext := range r.Extensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
