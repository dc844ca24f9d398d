package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/campusnote/campusnote/internal/schema"
)

// uploadField is the multipart field the upload endpoint reads.
const uploadField = "file"

// UploadFile sends the content of r as a multipart upload named name and
// returns where the server stored it.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (schema.UploadResult, error) {
	const path = "files/upload"
	var result schema.UploadResult

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, filepath.Base(name)))
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return result, fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return result, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return result, fmt.Errorf("failed to finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &buf)
	if err != nil {
		return result, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.send(req, path)
	if err != nil {
		return result, err
	}
	result, ok, err := decodeRecord[schema.UploadResult](data)
	if err != nil {
		return result, err
	}
	if !ok || (result.URL == "" && result.Path == "") {
		return result, fmt.Errorf("upload of %s: response has no file location", name)
	}
	return result, nil
}

// Download fetches a server-relative or absolute file URL into w.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveURL(ref), nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.open(req, ref)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}
