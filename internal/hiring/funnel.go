package hiring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/resume"
)

// HistoryCapacity bounds the recent analyses kept for the dashboard.
const HistoryCapacity = 5

var (
	// ErrIncompleteData is returned when analysis is triggered without a job, requirements or résumés.
	ErrIncompleteData = errors.New("incomplete data: select a job, set requirements and upload at least one resume")
	// ErrNotActive is returned by operations that need a started hiring process.
	ErrNotActive = errors.New("hiring process is not active")
	// ErrAnalysisInProgress is returned when an analysis is triggered while another one is running.
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
)

type Step int

const (
	StepIdle Step = iota
	StepSelectJob
	StepSetRequirements
	StepUploadResumes
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepSelectJob:
		return "select job"
	case StepSetRequirements:
		return "set requirements"
	case StepUploadResumes:
		return "upload resumes"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Analyzer runs the analysis on the backend.
type Analyzer interface {
	Analyze(ctx context.Context, job JobOpening, req HiringRequirements, docs []*resume.Document) (*ResumeAnalysis, error)
}

// HistorySource provides previously completed analyses.
type HistorySource interface {
	History(ctx context.Context) ([]*ResumeAnalysis, error)
}

// State is a copy of the funnel state; mutating it does not affect the funnel.
type State struct {
	Step         Step
	Active       bool
	Job          *JobOpening
	Requirements *HiringRequirements
	Resumes      []*resume.Document
	Submitting   bool
}

type Deps struct {
	Analyzer Analyzer
	History  HistorySource
	Logger   *zap.Logger
}

// Funnel is the step-wise hiring process: select a job, set requirements,
// upload résumés and trigger the analysis.
//
// Subscribers are called synchronously, in registration order, after every
// change. They must not call back into the funnel's mutating methods.
type Funnel struct {
	analyzer Analyzer
	logger   *zap.Logger

	// transition serializes changes together with their notification.
	transition sync.Mutex

	mu           sync.Mutex
	step         Step
	active       bool
	job          *JobOpening
	requirements *HiringRequirements
	resumes      []*resume.Document
	submitting   bool
	generation   uint64
	history      []*ResumeAnalysis
	subscribers  []func(State)
}

// New creates an idle funnel and loads the recent analyses once. A failing
// history source leaves the history empty.
func New(ctx context.Context, deps *Deps) *Funnel {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Funnel{
		analyzer: deps.Analyzer,
		logger:   logger,
	}

	if deps.History != nil {
		f.loadHistory(ctx, deps.History)
	}

	return f
}

func (f *Funnel) loadHistory(ctx context.Context, source HistorySource) {
	history, err := source.History(ctx)
	if err != nil {
		f.logger.Warn("loading recent analyses", zap.Error(err))
		return
	}

	if len(history) > HistoryCapacity {
		history = history[:HistoryCapacity]
	}

	f.mu.Lock()
	f.history = append([]*ResumeAnalysis(nil), history...)
	f.mu.Unlock()

	f.logger.Debug("recent analyses loaded", zap.Int("count", len(history)))
}

// Start begins a new hiring process from the job selection step.
func (f *Funnel) Start() {
	f.update(func() error {
		f.resetLocked()
		f.active = true
		f.step = StepSelectJob
		return nil
	})
}

// Cancel abandons the process and returns to idle.
func (f *Funnel) Cancel() {
	f.update(func() error {
		f.resetLocked()
		return nil
	})
}

// NextStep advances one step. The job must be selected to leave the job step and
// requirements must be set to leave the requirements step. At the upload step it
// does nothing: the analysis is triggered explicitly.
func (f *Funnel) NextStep() error {
	return f.update(func() error {
		switch f.step {
		case StepIdle:
			return ErrNotActive
		case StepSelectJob:
			if f.job == nil {
				return fmt.Errorf("%w: no job selected", ErrIncompleteData)
			}
		case StepSetRequirements:
			if f.requirements == nil {
				return fmt.Errorf("%w: requirements are not set", ErrIncompleteData)
			}
		case StepUploadResumes:
			return nil
		}

		f.step++
		return nil
	})
}

// PreviousStep goes back one step; going back from the job step cancels the process.
func (f *Funnel) PreviousStep() {
	f.update(func() error {
		if f.step > StepSelectJob {
			f.step--
			return nil
		}

		f.resetLocked()
		return nil
	})
}

// SelectJob records the job without advancing.
func (f *Funnel) SelectJob(job JobOpening) error {
	return f.update(func() error {
		if !f.active {
			return ErrNotActive
		}

		f.job = &job
		f.logger.Debug("job selected", zap.String("job_id", job.ID))
		return nil
	})
}

func (f *Funnel) SetRequirements(req HiringRequirements) {
	req.RequiredSkills = append([]string(nil), req.RequiredSkills...)
	req.NiceToHaveSkills = append([]string(nil), req.NiceToHaveSkills...)

	f.update(func() error {
		f.requirements = &req
		return nil
	})
}

// UploadResumes replaces the résumé list. Every document is validated first and
// a single invalid one rejects the whole batch.
func (f *Funnel) UploadResumes(docs []*resume.Document) error {
	for _, doc := range docs {
		if err := resume.Validate(doc); err != nil {
			return err
		}
	}

	return f.update(func() error {
		f.resumes = append([]*resume.Document(nil), docs...)
		f.logger.Debug("resumes uploaded", zap.Int("count", len(docs)))
		return nil
	})
}

// TriggerAnalysis submits the collected data. On success the result is added
// to the recent analyses and the funnel returns to idle; on failure nothing
// changes so the user can retry.
//
// A process restarted or cancelled while the request runs still gets the
// result recorded, but its new state is left alone.
func (f *Funnel) TriggerAnalysis(ctx context.Context) (*ResumeAnalysis, error) {
	var (
		job  JobOpening
		req  HiringRequirements
		docs []*resume.Document
		gen  uint64
	)

	err := f.update(func() error {
		if f.submitting {
			return ErrAnalysisInProgress
		}

		if f.job == nil || f.requirements == nil || len(f.resumes) == 0 {
			return ErrIncompleteData
		}

		job, req = *f.job, *f.requirements
		docs = append([]*resume.Document(nil), f.resumes...)
		gen = f.generation
		f.submitting = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("starting analysis",
		zap.String("job_id", job.ID),
		zap.Int("resumes", len(docs)),
	)

	analysis, err := f.analyzer.Analyze(ctx, job, req, docs)

	f.update(func() error {
		f.submitting = false
		if err != nil {
			return nil
		}

		f.history = append([]*ResumeAnalysis{analysis}, f.history...)
		if len(f.history) > HistoryCapacity {
			f.history = f.history[:HistoryCapacity]
		}

		if gen == f.generation {
			f.resetLocked()
		}
		return nil
	})

	if err != nil {
		f.logger.Warn("analysis failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil, err
	}

	f.logger.Info("analysis completed",
		zap.String("job_id", job.ID),
		zap.String("best_candidate", analysis.BestCandidate),
		zap.Int("analyzed", analysis.AnalyzedResumesCount),
	)

	return analysis, nil
}

// RecentAnalyses returns the newest-first history.
func (f *Funnel) RecentAnalyses() []*ResumeAnalysis {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*ResumeAnalysis(nil), f.history...)
}

func (f *Funnel) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stateLocked()
}

// Subscribe registers fn for state changes. fn receives the current state immediately.
func (f *Funnel) Subscribe(fn func(State)) {
	f.transition.Lock()
	defer f.transition.Unlock()

	f.mu.Lock()
	f.subscribers = append(f.subscribers, fn)
	current := f.stateLocked()
	f.mu.Unlock()

	fn(current)
}

// update applies change and notifies subscribers when it succeeds.
func (f *Funnel) update(change func() error) error {
	f.transition.Lock()
	defer f.transition.Unlock()

	f.mu.Lock()
	err := change()
	state := f.stateLocked()
	subs := make([]func(State), len(f.subscribers))
	copy(subs, f.subscribers)
	f.mu.Unlock()

	if err != nil {
		return err
	}

	for _, fn := range subs {
		fn(state)
	}

	return nil
}

func (f *Funnel) resetLocked() {
	f.generation++
	f.step = StepIdle
	f.active = false
	f.job = nil
	f.requirements = nil
	f.resumes = nil
}

func (f *Funnel) stateLocked() State {
	state := State{
		Step:       f.step,
		Active:     f.active,
		Submitting: f.submitting,
		Resumes:    append([]*resume.Document(nil), f.resumes...),
	}

	if f.job != nil {
		job := *f.job
		state.Job = &job
	}

	if f.requirements != nil {
		req := *f.requirements
		state.Requirements = &req
	}

	return state
}
