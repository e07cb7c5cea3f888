package hiring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/recruiter/internal/resume"
)

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	err   error
	// hook runs while the request is "in flight".
	hook func()
}

func (a *fakeAnalyzer) Analyze(_ context.Context, job JobOpening, req HiringRequirements, docs []*resume.Document) (*ResumeAnalysis, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.hook != nil {
		a.hook()
	}

	if a.err != nil {
		return nil, a.err
	}

	return &ResumeAnalysis{
		JobOpening:           job,
		Requirements:         req,
		BestCandidate:        docs[0].Name,
		AnalyzedResumesCount: len(docs),
		AnalysisDate:         time.Now(),
	}, nil
}

type fakeHistory struct {
	items []*ResumeAnalysis
	err   error
}

func (h *fakeHistory) History(context.Context) ([]*ResumeAnalysis, error) {
	return h.items, h.err
}

func newFunnel(t *testing.T, analyzer Analyzer) *Funnel {
	t.Helper()
	return New(context.Background(), &Deps{Analyzer: analyzer, Logger: zap.NewNop()})
}

func pdf(name string) *resume.Document {
	return resume.New(name, "", pdfContent)
}

// fill walks the funnel up to the upload step with complete data.
func fill(t *testing.T, f *Funnel) {
	t.Helper()

	f.Start()
	require.NoError(t, f.SelectJob(JobOpening{ID: "job1"}))
	require.NoError(t, f.NextStep())
	f.SetRequirements(HiringRequirements{ExperienceLevel: "Pleno", RequiredSkills: []string{"Go"}})
	require.NoError(t, f.NextStep())
	require.NoError(t, f.UploadResumes([]*resume.Document{pdf("cv.pdf")}))
}

func TestStartThenCancelReturnsToInitialState(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})
	initial := f.State()

	f.Start()
	assert.Equal(t, StepSelectJob, f.State().Step)
	assert.True(t, f.State().Active)

	f.Cancel()
	assert.Equal(t, initial, f.State())
}

func TestStartClearsPreviousSelections(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})
	fill(t, f)

	f.Start()

	state := f.State()
	assert.Equal(t, StepSelectJob, state.Step)
	assert.Nil(t, state.Job)
	assert.Nil(t, state.Requirements)
	assert.Empty(t, state.Resumes)
}

func TestSelectJobRequiresActiveProcess(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})

	require.ErrorIs(t, f.SelectJob(JobOpening{ID: "job1"}), ErrNotActive)
	assert.Nil(t, f.State().Job)

	f.Start()
	require.NoError(t, f.SelectJob(JobOpening{ID: "job1"}))
	assert.Equal(t, StepSelectJob, f.State().Step, "selecting a job does not advance")
}

func TestNextStepGuards(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})

	require.ErrorIs(t, f.NextStep(), ErrNotActive)

	f.Start()
	require.ErrorIs(t, f.NextStep(), ErrIncompleteData)
	assert.Equal(t, StepSelectJob, f.State().Step)

	require.NoError(t, f.SelectJob(JobOpening{ID: "job1"}))
	require.NoError(t, f.NextStep())
	assert.Equal(t, StepSetRequirements, f.State().Step)

	require.ErrorIs(t, f.NextStep(), ErrIncompleteData)
	f.SetRequirements(HiringRequirements{ExperienceLevel: "Senior"})
	require.NoError(t, f.NextStep())
	assert.Equal(t, StepUploadResumes, f.State().Step)

	// The last step never advances on its own.
	require.NoError(t, f.NextStep())
	assert.Equal(t, StepUploadResumes, f.State().Step)
}

func TestPreviousStep(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})
	fill(t, f)

	f.PreviousStep()
	assert.Equal(t, StepSetRequirements, f.State().Step)
	f.PreviousStep()
	assert.Equal(t, StepSelectJob, f.State().Step)
	assert.NotNil(t, f.State().Job)

	f.PreviousStep()
	state := f.State()
	assert.Equal(t, StepIdle, state.Step)
	assert.False(t, state.Active)
	assert.Nil(t, state.Job)
}

func TestUploadResumesRejectsInvalidTypes(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})
	fill(t, f)
	before := f.State()

	png := resume.New("photo.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
	err := f.UploadResumes([]*resume.Document{pdf("other.pdf"), png})

	var verr *resume.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, before, f.State())
}

func TestTriggerAnalysisWithoutJobFails(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	f := newFunnel(t, analyzer)

	f.Start()
	f.SetRequirements(HiringRequirements{ExperienceLevel: "Pleno"})
	require.NoError(t, f.UploadResumes([]*resume.Document{pdf("cv.pdf")}))
	before := f.State()

	_, err := f.TriggerAnalysis(context.Background())
	require.ErrorIs(t, err, ErrIncompleteData)
	assert.Equal(t, before, f.State())
	assert.Zero(t, analyzer.calls)
}

func TestTriggerAnalysisCompletesAndResets(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})
	fill(t, f)

	analysis, err := f.TriggerAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.AnalyzedResumesCount)
	assert.Equal(t, "job1", analysis.JobOpening.ID)

	state := f.State()
	assert.Equal(t, StepIdle, state.Step)
	assert.False(t, state.Active)
	assert.False(t, state.Submitting)
	assert.Nil(t, state.Job)

	recent := f.RecentAnalyses()
	require.Len(t, recent, 1)
	assert.Same(t, analysis, recent[0])
}

func TestTriggerAnalysisFailureKeepsState(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("bad status 502: upstream workflow failed")}
	f := newFunnel(t, analyzer)
	fill(t, f)
	before := f.State()

	_, err := f.TriggerAnalysis(context.Background())
	require.EqualError(t, err, "bad status 502: upstream workflow failed")
	assert.Equal(t, before, f.State())
	assert.Empty(t, f.RecentAnalyses())

	// Retry without re-entering anything.
	analyzer.err = nil
	_, err = f.TriggerAnalysis(context.Background())
	require.NoError(t, err)
}

func TestHistoryIsBoundedNewestFirst(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})

	for i := 0; i < HistoryCapacity+1; i++ {
		f.Start()
		require.NoError(t, f.SelectJob(JobOpening{ID: fmt.Sprintf("job%d", i)}))
		f.SetRequirements(HiringRequirements{ExperienceLevel: "Pleno"})
		require.NoError(t, f.UploadResumes([]*resume.Document{pdf("cv.pdf")}))
		_, err := f.TriggerAnalysis(context.Background())
		require.NoError(t, err)
	}

	recent := f.RecentAnalyses()
	require.Len(t, recent, HistoryCapacity)
	assert.Equal(t, "job5", recent[0].JobOpening.ID)
	assert.Equal(t, "job1", recent[HistoryCapacity-1].JobOpening.ID)
}

func TestConcurrentTriggerIsRejected(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	f := newFunnel(t, analyzer)
	fill(t, f)

	var nestedErr error
	analyzer.hook = func() {
		analyzer.hook = nil
		assert.True(t, f.State().Submitting)
		_, nestedErr = f.TriggerAnalysis(context.Background())
	}

	_, err := f.TriggerAnalysis(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, ErrAnalysisInProgress)
	assert.Equal(t, 1, analyzer.calls)
}

func TestRestartDuringAnalysisKeepsNewProcess(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	f := newFunnel(t, analyzer)
	fill(t, f)

	analyzer.hook = func() {
		f.Start()
		_ = f.SelectJob(JobOpening{ID: "job2"})
	}

	_, err := f.TriggerAnalysis(context.Background())
	require.NoError(t, err)

	state := f.State()
	assert.Equal(t, StepSelectJob, state.Step)
	require.NotNil(t, state.Job)
	assert.Equal(t, "job2", state.Job.ID)
	assert.Len(t, f.RecentAnalyses(), 1)
}

func TestHistoryLoadedAtConstruction(t *testing.T) {
	items := make([]*ResumeAnalysis, 0, 7)
	for i := 0; i < 7; i++ {
		items = append(items, &ResumeAnalysis{JobOpening: JobOpening{ID: fmt.Sprintf("job%d", i)}})
	}

	f := New(context.Background(), &Deps{History: &fakeHistory{items: items}})
	recent := f.RecentAnalyses()
	require.Len(t, recent, HistoryCapacity)
	assert.Equal(t, "job0", recent[0].JobOpening.ID)
}

func TestHistoryFailureYieldsEmptyList(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)

	f := New(context.Background(), &Deps{
		History: &fakeHistory{err: errors.New("connection refused")},
		Logger:  zap.New(core),
	})

	assert.Empty(t, f.RecentAnalyses())
	assert.Equal(t, 1, observed.FilterMessage("loading recent analyses").Len())
}

func TestSubscribersSeeEveryTransitionInOrder(t *testing.T) {
	f := newFunnel(t, &fakeAnalyzer{})

	var steps []Step
	f.Subscribe(func(s State) { steps = append(steps, s.Step) })

	fill(t, f)
	_, err := f.TriggerAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Step{
		StepIdle,            // subscribe
		StepSelectJob,       // start
		StepSelectJob,       // select job
		StepSetRequirements, // next
		StepSetRequirements, // requirements
		StepUploadResumes,   // next
		StepUploadResumes,   // upload
		StepUploadResumes,   // submitting
		StepIdle,            // completed
	}, steps)
}
