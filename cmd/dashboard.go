package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spigell/recruiter/internal/hiring"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the recent hiring analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, dashboard)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func dashboard(ctx context.Context, _ *cobra.Command, a *App) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	funnel := a.newFunnel(ctx)

	name := a.Session.UserName()
	if name != "" {
		fmt.Printf("Hello, %s.\n\n", color.CyanString(name))
	}

	printAnalyses(funnel.RecentAnalyses())
	fmt.Printf("\nStart a new hiring process with %s\n", color.New(color.Bold).Sprint(app+" hire"))
	return nil
}

func printAnalyses(analyses []*hiring.ResumeAnalysis) {
	if len(analyses) == 0 {
		fmt.Println(color.YellowString("No analyses yet."))
		return
	}

	fmt.Println(color.New(color.Bold).Sprint("Recent analyses"))
	for _, analysis := range analyses {
		printAnalysis(analysis)
	}
}

func printAnalysis(analysis *hiring.ResumeAnalysis) {
	date := "unknown date"
	if !analysis.AnalysisDate.IsZero() {
		date = analysis.AnalysisDate.Local().Format("2006-01-02 15:04")
	}

	fmt.Printf("  %s  %s\n", color.New(color.Faint).Sprint(date), color.CyanString(analysis.JobOpening.String()))

	best := analysis.BestCandidate
	if best == "" {
		best = "none"
	}
	fmt.Printf("    best candidate: %s (%d analyzed)\n", color.GreenString(best), analysis.AnalyzedResumesCount)

	req := analysis.Requirements
	if req.ExperienceLevel != "" || len(req.RequiredSkills) > 0 {
		fmt.Printf("    %s, %s\n", req.ExperienceLevel, strings.Join(req.RequiredSkills, ", "))
	}
}
