package api

import (
	"context"
	"strings"

	"github.com/spigell/recruiter/internal/resume"
)

const (
	chatPath          = "/chat"
	analyzeResumePath = "/analyze"

	resumeFileField = "curriculo"
)

type ChatResponse struct {
	Reply *string `json:"reply"`
}

// Chat relays a message to the assistant workflow and returns its reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, chatPath, map[string]string{"message": message}, &resp, true); err != nil {
		return "", err
	}

	return reply(resp)
}

// AnalyzeResume uploads a single résumé to the assistant workflow.
func (c *Client) AnalyzeResume(ctx context.Context, doc *resume.Document) (string, error) {
	if err := resume.Validate(doc); err != nil {
		return "", err
	}

	files := []filePart{{
		field:       resumeFileField,
		name:        doc.Name,
		contentType: doc.ContentType,
		content:     doc.Content,
	}}

	var resp ChatResponse
	if err := c.postMultipart(ctx, analyzeResumePath, nil, files, &resp); err != nil {
		return "", err
	}

	return reply(resp)
}

func reply(resp ChatResponse) (string, error) {
	if resp.Reply == nil || strings.TrimSpace(*resp.Reply) == "" {
		return "", malformed("assistant response has no reply")
	}

	return *resp.Reply, nil
}
