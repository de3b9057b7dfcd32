package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// MaxUploadBytes is the largest file Upload accepts.
const MaxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is an upload payload. Size may be 0 when unknown; the body is then
// measured while it is buffered.
type File struct {
	Field       string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func validateUpload(f File) error {
	if f.Body == nil {
		return httpError(http.StatusBadRequest, "file has no content", ErrEmptyFile)
	}
	if f.Size > MaxUploadBytes {
		return httpError(http.StatusRequestEntityTooLarge, "file exceeds the 10MB limit", ErrFileTooLarge)
	}
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if !allowedUploadTypes[ct] {
		return httpError(http.StatusBadRequest,
			fmt.Sprintf("file type %q is not allowed (jpeg, png, gif, webp)", f.ContentType), ErrUnsupportedFileType)
	}
	return nil
}

// Upload posts f as multipart/form-data to path. Oversized or disallowed files
// fail before any request is made.
func (c *Client) Upload(ctx context.Context, path string, f File, out any, opts ...CallOption) error {
	if err := validateUpload(f); err != nil {
		return err
	}
	content, err := io.ReadAll(io.LimitReader(f.Body, MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("read upload %s: %w", f.Name, err)
	}
	if len(content) > MaxUploadBytes {
		return httpError(http.StatusRequestEntityTooLarge, "file exceeds the 10MB limit", ErrFileTooLarge)
	}

	field := f.Field
	if field == "" {
		field = "file"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", strings.ToLower(f.ContentType))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	opts = append([]CallOption{WithHeader("Content-Type", mw.FormDataContentType())}, opts...)
	raw, err := c.send(ctx, http.MethodPost, path, &buf, opts)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeBody(raw, out); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	return nil
}
