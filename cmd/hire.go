package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/hiring"
	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/resume"
	"github.com/spigell/recruiter/internal/session"
)

const (
	PromptBack    = "← Back"
	PromptCancel  = "Cancel"
	PromptAnalyze = "Analyze"
	PromptUpload  = "Choose other files"
)

var errCancelled = errors.New("hiring process cancelled")

var hireCmd = &cobra.Command{
	Use:   "hire",
	Short: "Run the hiring process: pick a job, set requirements, upload résumés and analyze them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, hire)
	},
}

func init() {
	rootCmd.AddCommand(hireCmd)

	hireCmd.Flags().String("job", "", "id of the job opening, skips the job selection step")
	hireCmd.Flags().StringSliceP("resume", "r", nil, "résumé files to upload (pdf, doc, docx, txt)")
	hireCmd.Flags().String("jobs-file", "", "YAML file with the job openings")
}

func hire(ctx context.Context, cmd *cobra.Command, a *App) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	if jobsFile, _ := cmd.Flags().GetString("jobs-file"); jobsFile != "" {
		a.Config.JobsFile = jobsFile
	}

	catalog, err := a.catalog()
	if err != nil {
		return err
	}
	if catalog.Len() == 0 {
		return errors.New("there are no job openings to hire for")
	}

	funnel := a.newFunnel(ctx)
	funnel.Subscribe(func(s hiring.State) {
		a.Logger.Debug("hiring process changed", zap.Stringer(logger.FieldStep, s.Step), zap.Bool("active", s.Active))
	})

	preset, _ := cmd.Flags().GetStringSlice("resume")

	funnel.Start()

	if jobID, _ := cmd.Flags().GetString("job"); jobID != "" {
		if err := preselectJob(funnel, catalog, jobID); err != nil {
			return err
		}
	}
	for {
		state := funnel.State()
		if !state.Active {
			fmt.Println("Hiring process cancelled.")
			return nil
		}

		switch state.Step {
		case hiring.StepSelectJob:
			err = selectJob(funnel, catalog)
		case hiring.StepSetRequirements:
			err = setRequirements(funnel)
		case hiring.StepUploadResumes:
			var done bool
			done, err = uploadAndAnalyze(ctx, a, funnel, &preset)
			if done {
				return nil
			}
		}

		if err != nil {
			if errors.Is(err, errCancelled) || errors.Is(err, promptui.ErrInterrupt) {
				funnel.Cancel()
				continue
			}
			return err
		}
	}
}

// choose runs a select prompt and maps the navigation items onto the funnel.
func choose(funnel *hiring.Funnel, label string, items []string) (int, string, bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: append(items, PromptBack, PromptCancel),
		Size:  10,
	}

	idx, selected, err := prompt.Run()
	if err != nil {
		return 0, "", false, err
	}

	switch selected {
	case PromptBack:
		funnel.PreviousStep()
		return 0, "", false, nil
	case PromptCancel:
		return 0, "", false, errCancelled
	}

	return idx, selected, true, nil
}

func preselectJob(funnel *hiring.Funnel, catalog *hiring.Catalog, id string) error {
	job := catalog.FindByID(id)
	if job == nil {
		return fmt.Errorf("there is no job opening with id %q", id)
	}

	if err := funnel.SelectJob(*job); err != nil {
		return err
	}

	return funnel.NextStep()
}

func selectJob(funnel *hiring.Funnel, catalog *hiring.Catalog) error {
	idx, _, ok, err := choose(funnel, "Step 1/3: choose a job opening", catalog.Titles())
	if err != nil || !ok {
		return err
	}

	job := catalog.Jobs[idx]
	if err := funnel.SelectJob(job); err != nil {
		return err
	}
	if job.Description != "" {
		fmt.Println(color.New(color.Faint).Sprint(job.Description))
	}

	return funnel.NextStep()
}

func setRequirements(funnel *hiring.Funnel) error {
	_, level, ok, err := choose(funnel, "Step 2/3: experience level", append([]string(nil), hiring.ExperienceLevels...))
	if err != nil || !ok {
		return err
	}

	required, err := ask("Required skills (comma separated)", true)
	if err != nil {
		return err
	}

	nice, err := ask("Nice to have skills (comma separated)", false)
	if err != nil {
		return err
	}

	specific, err := ask("Specific requirements", false)
	if err != nil {
		return err
	}

	funnel.SetRequirements(hiring.HiringRequirements{
		ExperienceLevel:      level,
		RequiredSkills:       hiring.ParseSkills(required),
		NiceToHaveSkills:     hiring.ParseSkills(nice),
		SpecificRequirements: strings.TrimSpace(specific),
	})

	return funnel.NextStep()
}

func uploadAndAnalyze(ctx context.Context, a *App, funnel *hiring.Funnel, preset *[]string) (bool, error) {
	if len(funnel.State().Resumes) == 0 {
		paths := *preset
		*preset = nil

		if len(paths) == 0 {
			answer, err := ask("Step 3/3: résumé files (comma separated paths)", true)
			if err != nil {
				return false, err
			}
			paths = splitList(answer)
		}

		docs, err := resume.LoadAll(paths)
		if err == nil {
			err = funnel.UploadResumes(docs)
		}
		if err != nil {
			fmt.Println(color.RedString("%v", err))
			return false, nil
		}
	}

	state := funnel.State()
	fmt.Printf("%s for %s: %s\n",
		color.New(color.Bold).Sprint("Ready"),
		state.Job.String(),
		strings.Join(resume.Names(state.Resumes), ", "),
	)

	_, action, ok, err := choose(funnel, "Run the analysis?", []string{PromptAnalyze, PromptUpload})
	if err != nil || !ok {
		return false, err
	}

	if action == PromptUpload {
		return false, funnel.UploadResumes(nil)
	}

	fmt.Println("Analyzing résumés, this may take a while...")

	analysis, err := funnel.TriggerAnalysis(ctx)
	if a.sessionRejected(err) {
		return false, session.ErrNotAuthenticated
	}
	if err != nil {
		a.Logger.Error("analysis failed", zap.Error(err))
		fmt.Println(color.RedString("The analysis failed: %v. You can retry.", err))
		return false, nil
	}

	color.Green("Analysis completed.")
	printAnalysis(analysis)
	return true, nil
}

func ask(label string, required bool) (string, error) {
	prompt := promptui.Prompt{Label: label}
	if required {
		prompt.Validate = func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a value is required")
			}
			return nil
		}
	}

	return prompt.Run()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
