package web

import (
	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/model"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
	"go.uber.org/zap"
)

const workspacePath = "/workspace"

// WorkspacePage lists the user's saved work. The list is fetched once per
// visit; deletions afterwards edit the held list.
func (h *Handler) WorkspacePage(c *gin.Context) {
	sess := currentSession(c)

	_, t, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		t.Enter(session.PageWorkspace)
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	if sess.Authenticated && !t.Workspace.Loaded {
		ctx := c.Request.Context()
		records, listErr := h.backend.ListWorkRecords(ctx, sess.UserID)
		if listErr != nil {
			h.log.Warn("Failed to list work records", zap.String("user_id", sess.UserID), zap.Error(listErr))
		}
		info, infoErr := h.backend.GetUserInfo(ctx, sess.UserID)
		if infoErr != nil {
			h.log.Debug("User info unavailable", zap.String("user_id", sess.UserID), zap.Error(infoErr))
		}

		if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
			if t.Page != session.PageWorkspace || t.Workspace.Loaded {
				return
			}
			if listErr != nil {
				t.Workspace.RecordsFailed(listErr)
			} else {
				t.Workspace.RecordsLoaded(records)
			}
			if infoErr == nil {
				t.Workspace.UserLoaded(info)
			}
		}); err != nil {
			h.fail(c, err)
			return
		}
	}

	var notices []*workflow.Notice
	st, t, err := h.updateTab(c, func(st *session.State, t *session.Tab) {
		notices = noticeList(st.TakeFlash(), t.Workspace.TakeNotice())
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	page := h.newPage(c, st, "我的工作", session.PageWorkspace)
	page.Workspace = &t.Workspace
	page.Notices = notices
	h.render(c, "workspace.html", page)
}

// RequestDelete opens the confirmation for a record.
func (h *Handler) RequestDelete(c *gin.Context) {
	recordID := c.Param("recordId")
	h.actTab(c, workspacePath, func(_ *session.State, t *session.Tab) {
		if t.Page == session.PageWorkspace {
			_ = t.Workspace.RequestDelete(recordID)
		}
	})
}

// CancelDelete closes the confirmation.
func (h *Handler) CancelDelete(c *gin.Context) {
	h.actTab(c, workspacePath, func(_ *session.State, t *session.Tab) {
		if t.Page == session.PageWorkspace {
			t.Workspace.CancelDelete()
		}
	})
}

// ConfirmDelete deletes the pending record. It leaves the list only after
// the backend confirmed the deletion.
func (h *Handler) ConfirmDelete(c *gin.Context) {
	sess := currentSession(c)
	recordID := c.Param("recordId")

	var (
		id    string
		began bool
	)
	if _, _, err := h.updateTab(c, func(_ *session.State, t *session.Tab) {
		began = false
		if t.Page != session.PageWorkspace || t.Workspace.PendingDelete != recordID {
			return
		}
		pending, err := t.Workspace.BeginDelete()
		id, began = pending, err == nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !began {
		stay(c, workspacePath)
		return
	}

	delErr := h.backend.DeleteWorkRecord(c.Request.Context(), sess.UserID, id)
	if delErr != nil {
		h.log.Warn("Failed to delete work record",
			zap.String("user_id", sess.UserID),
			zap.String("record_id", id),
			zap.Error(delErr))
	}
	h.actTab(c, workspacePath, func(_ *session.State, t *session.Tab) {
		if t.Page != session.PageWorkspace || !t.Workspace.Deleting {
			return
		}
		if delErr != nil {
			t.Workspace.DeleteFailed(delErr)
			return
		}
		t.Workspace.Deleted(id)
	})
}

// pendingRecord is the record the delete dialog asks about.
func pendingRecord(w *workflow.Workspace) *model.WorkRecord {
	if w == nil || w.PendingDelete == "" {
		return nil
	}
	rec, ok := w.Find(w.PendingDelete)
	if !ok {
		return nil
	}
	return &rec
}
