// Package session keeps each browser session's identity and page state.
package session

import (
	"github.com/wzyjerry/data-agent-web/internal/workflow"
)

// Page names.
const (
	PageHome       = "home"
	PageAnalysis   = "analysis"
	PagePrediction = "prediction"
	PageWorkspace  = "workspace"
	PageLogin      = "login"
)

// Session is the identity attached to a request. An anonymous session has no
// user id and is not authenticated.
type Session struct {
	ID            string
	UserID        string
	Username      string
	Authenticated bool
}

// Anonymous returns a session without a user.
func Anonymous(id string) Session {
	return Session{ID: id}
}

// DisplayName is the name shown in the header.
func (s Session) DisplayName() string {
	if !s.Authenticated {
		return "未登录"
	}
	if s.Username != "" {
		return s.Username
	}
	return s.UserID
}

// MaxTabs bounds how many browser tabs a session keeps page state for. The
// least recently used tab is forgotten first.
const MaxTabs = 8

// State is the server-held UI state of one browser session. Page workflows
// live per browser tab so tabs never reset each other.
type State struct {
	Tabs             map[string]*Tab `json:"tabs,omitempty"`
	Clock            uint64          `json:"clock,omitempty"`
	SidebarCollapsed bool            `json:"sidebar_collapsed,omitempty"`
	// Flash is a notice carried across a page change, e.g. after login.
	Flash *workflow.Notice `json:"flash,omitempty"`
}

// Tab is the page state of one browser tab. Only the page the tab shows keeps
// meaningful workflow state; entering another page resets it.
type Tab struct {
	Page       string              `json:"page"`
	Seen       uint64              `json:"seen"`
	Analysis   workflow.Analysis   `json:"analysis"`
	Prediction workflow.Prediction `json:"prediction"`
	Workspace  workflow.Workspace  `json:"workspace"`
	Login      workflow.Login      `json:"login"`
}

// NewState returns the state of a fresh session.
func NewState() *State {
	return &State{}
}

// NewTab returns the state of a freshly opened tab.
func NewTab() *Tab {
	return &Tab{
		Page:       PageHome,
		Analysis:   workflow.NewAnalysis(),
		Prediction: workflow.NewPrediction(),
		Login:      workflow.NewLogin(),
	}
}

// Tab returns the state of tab id, opening it when unknown. Opening a tab
// beyond MaxTabs forgets the least recently used other tab.
func (s *State) Tab(id string) *Tab {
	if s.Tabs == nil {
		s.Tabs = make(map[string]*Tab)
	}
	s.Clock++
	t, ok := s.Tabs[id]
	if !ok {
		t = NewTab()
		s.Tabs[id] = t
		s.evict(id)
	}
	t.Seen = s.Clock
	return t
}

// Lookup returns tab id without opening it.
func (s *State) Lookup(id string) (*Tab, bool) {
	t, ok := s.Tabs[id]
	return t, ok
}

func (s *State) evict(keep string) {
	for len(s.Tabs) > MaxTabs {
		oldest := ""
		for id, t := range s.Tabs {
			if id == keep {
				continue
			}
			if oldest == "" || t.Seen < s.Tabs[oldest].Seen {
				oldest = id
			}
		}
		if oldest == "" {
			return
		}
		delete(s.Tabs, oldest)
	}
}

// Enter records that page is now displayed in the tab. It reports whether the
// page changed, in which case that page's workflow has been reset.
func (t *Tab) Enter(page string) bool {
	if t.Page == page {
		return false
	}
	t.Page = page
	switch page {
	case PageAnalysis:
		t.Analysis = workflow.NewAnalysis()
	case PagePrediction:
		t.Prediction = workflow.NewPrediction()
	case PageWorkspace:
		t.Workspace.Mount()
	case PageLogin:
		t.Login.Mount()
	}
	return true
}

// SetFlash queues a notice for the next rendered page.
func (s *State) SetFlash(level, text string) {
	s.Flash = &workflow.Notice{Level: level, Text: text}
}

// TakeFlash returns the queued notice and clears it.
func (s *State) TakeFlash() *workflow.Notice {
	n := s.Flash
	s.Flash = nil
	return n
}
