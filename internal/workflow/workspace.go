package workflow

import (
	"github.com/wzyjerry/data-agent-web/internal/model"
)

// Workspace is the saved-work list. A record leaves the list only after the
// backend confirmed its deletion.
type Workspace struct {
	Loaded        bool               `json:"loaded"`
	Records       []model.WorkRecord `json:"records"`
	User          *model.UserInfo    `json:"user,omitempty"`
	PendingDelete string             `json:"pending_delete,omitempty"`
	Deleting      bool               `json:"deleting,omitempty"`
	Notice        *Notice            `json:"notice,omitempty"`
}

// Mount resets the list; it is reloaded on every visit.
func (w *Workspace) Mount() {
	*w = Workspace{}
}

// RecordsLoaded installs the listing.
func (w *Workspace) RecordsLoaded(records []model.WorkRecord) {
	if records == nil {
		records = []model.WorkRecord{}
	}
	w.Records = records
	w.Loaded = true
}

// RecordsFailed shows an empty list with the failure.
func (w *Workspace) RecordsFailed(err error) {
	w.Records = []model.WorkRecord{}
	w.Loaded = true
	w.Notice = notice(LevelError, Describe(err, "加载工作记录失败"))
}

// UserLoaded attaches the profile shown in the header.
func (w *Workspace) UserLoaded(info *model.UserInfo) {
	w.User = info
}

// Find returns the listed record with the given id.
func (w *Workspace) Find(recordID string) (model.WorkRecord, bool) {
	for _, r := range w.Records {
		if r.RecordID == recordID {
			return r, true
		}
	}
	return model.WorkRecord{}, false
}

// RequestDelete opens the confirmation for recordID.
func (w *Workspace) RequestDelete(recordID string) error {
	if w.Deleting {
		return w.reject(ErrBusy)
	}
	if _, ok := w.Find(recordID); !ok {
		return w.reject(ErrUnknownRecord)
	}
	w.PendingDelete = recordID
	return nil
}

// CancelDelete closes the confirmation.
func (w *Workspace) CancelDelete() {
	if !w.Deleting {
		w.PendingDelete = ""
	}
}

// BeginDelete confirms the pending deletion and returns the record id to delete.
func (w *Workspace) BeginDelete() (string, error) {
	if w.Deleting {
		return "", w.reject(ErrBusy)
	}
	if w.PendingDelete == "" {
		return "", w.reject(ErrNothingPending)
	}
	w.Deleting = true
	return w.PendingDelete, nil
}

// Deleted removes the record after the backend deleted it.
func (w *Workspace) Deleted(recordID string) {
	kept := make([]model.WorkRecord, 0, len(w.Records))
	for _, r := range w.Records {
		if r.RecordID != recordID {
			kept = append(kept, r)
		}
	}
	w.Records = kept
	w.Deleting = false
	w.PendingDelete = ""
	w.Notice = notice(LevelSuccess, "删除成功")
}

// DeleteFailed keeps the record and reports the failure.
func (w *Workspace) DeleteFailed(err error) {
	w.Deleting = false
	w.PendingDelete = ""
	w.Notice = notice(LevelError, Describe(err, "删除失败"))
}

// TakeNotice returns the pending notice and clears it.
func (w *Workspace) TakeNotice() *Notice {
	n := w.Notice
	w.Notice = nil
	return n
}

func (w *Workspace) reject(err error) error {
	w.Notice = notice(LevelError, Describe(err, ""))
	return err
}
