package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wzyjerry/data-agent-web/internal/model"
)

// DefaultPreviewRows is the preview size the backend uses when none is given.
const DefaultPreviewRows = 10

// UploadDataset uploads a file as multipart form data. An empty description
// is omitted.
func (c *Client) UploadDataset(ctx context.Context, filename string, file io.Reader, description string) (*model.Dataset, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if strings.TrimSpace(description) != "" {
		if err := w.WriteField("description", description); err != nil {
			return nil, fmt.Errorf("write description: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	resp, err := c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        "/api/upload/dataset",
		Body:        &buf,
		ContentType: w.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}

	var ds model.Dataset
	if err := resp.JSON(&ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// GetDataset fetches dataset metadata by id.
func (c *Client) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	var ds model.Dataset
	if err := c.getJSON(ctx, "/api/upload/dataset/"+segment(id), nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// GetDatasetPreview fetches the first rows of a dataset. Non-positive rows
// use the backend default.
func (c *Client) GetDatasetPreview(ctx context.Context, id string, rows int) (*model.DatasetPreview, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	if rows <= 0 {
		rows = DefaultPreviewRows
	}
	var preview model.DatasetPreview
	query := url.Values{"rows": {strconv.Itoa(rows)}}
	if err := c.getJSON(ctx, "/api/upload/dataset/"+segment(id)+"/preview", query, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}
