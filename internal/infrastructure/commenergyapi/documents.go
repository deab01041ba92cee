package commenergyapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"commenergy-backend/internal/domain"
)

func (c *Client) ListDocuments(ctx context.Context, token, communityID string) ([]domain.Document, error) {
	var out []domain.Document
	path := "/communities/" + url.PathEscape(communityID) + "/documents"
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out, "documents"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out, validateEach("documents", out)
}

// DocumentUpload is one file sent to POST /documents as multipart form data.
type DocumentUpload struct {
	CommunityID string
	Type        domain.DocumentType
	FileName    string
	Content     io.Reader
}

func (c *Client) UploadDocument(ctx context.Context, token string, in DocumentUpload) (*domain.Document, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("communityId", in.CommunityID); err != nil {
		return nil, err
	}
	if err := w.WriteField("type", string(in.Type)); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", in.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return nil, fmt.Errorf("remote api: copy document: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/documents", token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out domain.Document
	if err := c.send(req, "/documents", &out, "document"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, token, documentID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+url.PathEscape(documentID), token, nil, nil, "document")
}
