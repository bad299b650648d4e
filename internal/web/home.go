package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/workflow"
)

// Home renders the landing page with the uploader and quick links.
func (h *Handler) Home(c *gin.Context) {
	var flash *workflow.Notice
	st, _, err := h.updateTab(c, func(st *session.State, t *session.Tab) {
		t.Enter(session.PageHome)
		flash = st.TakeFlash()
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	page := h.newPage(c, st, "首页", session.PageHome)
	page.UploadFrom = session.PageHome
	page.Notices = noticeList(flash)
	h.render(c, "home.html", page)
}

// ToggleSidebar collapses or expands the menu and returns to the page it was
// pressed on.
func (h *Handler) ToggleSidebar(c *gin.Context) {
	h.act(c, localPath(c.PostForm("next"), "/"), func(st *session.State) {
		st.SidebarCollapsed = !st.SidebarCollapsed
	})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Data Agent web client is running",
	})
}
