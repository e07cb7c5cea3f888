package hiring

import (
	"fmt"
	"strings"
	"time"
)

type JobOpening struct {
	ID          string `json:"id" mapstructure:"id" yaml:"id"`
	Title       string `json:"title" mapstructure:"title" yaml:"title"`
	Description string `json:"description,omitempty" mapstructure:"description" yaml:"description"`
}

type HiringRequirements struct {
	ExperienceLevel      string   `json:"experienceLevel" mapstructure:"experienceLevel"`
	RequiredSkills       []string `json:"requiredSkills" mapstructure:"requiredSkills"`
	NiceToHaveSkills     []string `json:"niceToHaveSkills,omitempty" mapstructure:"niceToHaveSkills"`
	SpecificRequirements string   `json:"specificRequirements,omitempty" mapstructure:"specificRequirements"`
}

// ResumeAnalysis is the immutable result of one analysis run.
type ResumeAnalysis struct {
	JobOpening           JobOpening         `json:"jobOpening" mapstructure:"jobOpening"`
	Requirements         HiringRequirements `json:"requirements" mapstructure:"requirements"`
	BestCandidate        string             `json:"bestCandidate" mapstructure:"bestCandidate"`
	AnalyzedResumesCount int                `json:"analyzedResumesCount" mapstructure:"analyzedResumesCount"`
	AnalysisDate         time.Time          `json:"analysisDate" mapstructure:"analysisDate"`
}

// ExperienceLevels are the levels offered by the requirements step.
var ExperienceLevels = []string{"Junior", "Pleno", "Senior", "Especialista"}

// ParseSkills splits a comma separated list, dropping blanks and duplicates while keeping order.
func ParseSkills(s string) []string {
	seen := make(map[string]struct{})
	skills := make([]string, 0)
	for _, raw := range strings.Split(s, ",") {
		skill := strings.TrimSpace(raw)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}

func (j JobOpening) String() string {
	if j.Title == "" {
		return j.ID
	}
	return fmt.Sprintf("%s (%s)", j.Title, j.ID)
}
