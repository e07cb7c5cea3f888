package hiring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the list of job openings offered by the job selection step.
type Catalog struct {
	Jobs []JobOpening `yaml:"jobs"`
}

// DefaultCatalog is used when no jobs file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Jobs: []JobOpening{
			{ID: "job1", Title: "Desenvolvedor Frontend Angular", Description: "Vaga para desenvolvedor com experiência em Angular 17+."},
			{ID: "job2", Title: "Engenheiro de Dados Pleno", Description: "Experiência com pipelines de dados e cloud."},
			{ID: "job3", Title: "UX Designer Senior", Description: "Foco em design de interfaces para aplicações web."},
		},
	}
}

// LoadCatalog reads job openings from a YAML file:
//
//	jobs:
//	  - id: job1
//	    title: Go Developer
//	    description: Backend services
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse jobs file: %w", err)
	}

	seen := make(map[string]struct{}, len(catalog.Jobs))
	for idx, job := range catalog.Jobs {
		id := strings.TrimSpace(job.ID)
		if id == "" {
			return nil, fmt.Errorf("jobs[%d]: id is required", idx)
		}
		if strings.TrimSpace(job.Title) == "" {
			return nil, fmt.Errorf("jobs[%d]: title is required", idx)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("jobs[%d]: duplicate id %q", idx, id)
		}
		seen[id] = struct{}{}
	}

	return &catalog, nil
}

func (c *Catalog) Len() int {
	return len(c.Jobs)
}

func (c *Catalog) FindByID(id string) *JobOpening {
	for idx := range c.Jobs {
		if c.Jobs[idx].ID == id {
			return &c.Jobs[idx]
		}
	}
	return nil
}

func (c *Catalog) Titles() []string {
	titles := make([]string, 0, len(c.Jobs))
	for _, job := range c.Jobs {
		titles = append(titles, job.String())
	}
	return titles
}
