package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// filePart is a file attached to a multipart request.
type filePart struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func (c *Client) postJSON(ctx context.Context, path string, payload, target any, authenticated bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return err
	}

	req = c.setHeaders(req, authenticated)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req, true)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, files []filePart, target any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for key, val := range fields {
		field, err := w.CreateFormField(key)
		if err != nil {
			return err
		}

		_, err = io.Copy(field, strings.NewReader(val))
		if err != nil {
			return err
		}
	}

	for _, file := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(file.field), escapeQuotes(file.name)))
		h.Set("Content-Type", file.contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}

		if _, err = part.Write(file.content); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), &b)
	if err != nil {
		return err
	}

	req = c.setHeaders(req, true)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, target)
}

// do sends the request and decodes a successful JSON body into target.
func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, data)
		c.logger.Debug("request failed",
			zap.String("url", req.URL.String()),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if target == nil {
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return malformed("empty body from %s", req.URL.Path)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return malformed("decoding %s: %v", req.URL.Path, err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(requestIDHeader)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, authenticated bool) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set(requestIDHeader, uuid.NewString())

	if authenticated && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(TokenHeader, token)
		}
	}

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
