package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
)

// RegisterUser registers a username with the backend. The backend takes its
// arguments as query parameters.
func (c *Client) RegisterUser(ctx context.Context, username, email string) (*model.UserInfo, error) {
	query := url.Values{"username": {username}, "email": {email}}
	var info model.UserInfo
	if err := c.sendJSON(ctx, http.MethodPost, "/api/user/register", query, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserInfo fetches a user's profile.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*model.UserInfo, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyID
	}
	var info model.UserInfo
	if err := c.getJSON(ctx, "/api/user/info/"+segment(userID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListWorkRecords lists a user's saved work. An unknown user yields an empty
// list rather than an error.
func (c *Client) ListWorkRecords(ctx context.Context, userID string) ([]model.WorkRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyID
	}
	records := []model.WorkRecord{}
	err := c.getJSON(ctx, "/api/user/records/"+segment(userID), nil, &records)
	if IsNotFound(err) {
		return []model.WorkRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.WorkRecord{}
	}
	return records, nil
}

// AddWorkRecord saves a work record for a user.
func (c *Client) AddWorkRecord(ctx context.Context, userID string, record model.WorkRecord) (*model.Ack, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyID
	}
	var ack model.Ack
	if err := c.sendJSON(ctx, http.MethodPost, "/api/user/records/"+segment(userID), nil, record, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// DeleteWorkRecord deletes one of a user's work records.
func (c *Client) DeleteWorkRecord(ctx context.Context, userID, recordID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(recordID) == "" {
		return ErrEmptyID
	}
	path := "/api/user/records/" + segment(userID) + "/" + segment(recordID)
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}
