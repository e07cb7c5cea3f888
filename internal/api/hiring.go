package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/recruiter/internal/hiring"
	"github.com/spigell/recruiter/internal/resume"
)

const (
	historyPath = "/hiring/history"
	analyzePath = "/hiring/analyze"

	resumesField      = "resumes"
	jobOpeningField   = "jobOpening"
	requirementsField = "requirements"
)

type Item interface{}

// History returns the recent analyses, newest first as ordered by the backend.
func (c *Client) History(ctx context.Context) ([]*hiring.ResumeAnalysis, error) {
	var items []Item
	if err := c.getJSON(ctx, historyPath, &items); err != nil {
		return nil, err
	}

	analyses := make([]*hiring.ResumeAnalysis, 0, len(items))
	for idx, item := range items {
		analysis, err := decodeAnalysis(item)
		if err != nil {
			return nil, fmt.Errorf("history item %d: %w", idx, err)
		}
		analyses = append(analyses, analysis)
	}

	return analyses, nil
}

// Analyze submits the job, requirements and résumés for analysis.
func (c *Client) Analyze(ctx context.Context, job hiring.JobOpening, req hiring.HiringRequirements, docs []*resume.Document) (*hiring.ResumeAnalysis, error) {
	if err := resume.ValidateAll(docs); err != nil {
		return nil, err
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encoding job opening: %w", err)
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding requirements: %w", err)
	}

	fields := map[string]string{
		jobOpeningField:   string(jobJSON),
		requirementsField: string(reqJSON),
	}

	files := make([]filePart, 0, len(docs))
	for _, doc := range docs {
		files = append(files, filePart{
			field:       resumesField,
			name:        doc.Name,
			contentType: doc.ContentType,
			content:     doc.Content,
		})
	}

	var item Item
	if err := c.postMultipart(ctx, analyzePath, fields, files, &item); err != nil {
		return nil, err
	}

	return decodeAnalysis(item)
}

func decodeAnalysis(item Item) (*hiring.ResumeAnalysis, error) {
	raw, ok := item.(map[string]any)
	if !ok {
		return nil, malformed("analysis is %T, not an object", item)
	}

	var analysis hiring.ResumeAnalysis
	cfg := &mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		Result:           &analysis,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, malformed("decoding analysis: %v", err)
	}

	if analysis.JobOpening.ID == "" && analysis.JobOpening.Title == "" {
		return nil, malformed("analysis has no job opening")
	}

	return &analysis, nil
}
