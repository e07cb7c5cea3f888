package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spigell/recruiter/internal/chat"
	"github.com/spigell/recruiter/internal/resume"
	"github.com/spigell/recruiter/internal/session"
)

const (
	fileCommand = "/file"
	quitCommand = "/quit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the résumé assistant; '/file <path>' uploads a résumé, '/quit' exits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, runChat)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, _ *cobra.Command, a *App) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	conversation := chat.New(&chat.Deps{Assistant: a.Client, Logger: a.Logger})
	printBot(chat.Greeting)

	return chatLoop(ctx, a, conversation, os.Stdin)
}

func chatLoop(ctx context.Context, a *App, conversation *chat.Conversation, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print(color.CyanString("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())

		var (
			reply string
			err   error
		)

		switch {
		case line == "":
			continue
		case line == quitCommand:
			return nil
		case line == fileCommand:
			fmt.Println("usage: /file <path>")
			continue
		case strings.HasPrefix(line, fileCommand+" "):
			path := strings.TrimSpace(strings.TrimPrefix(line, fileCommand))

			var doc *resume.Document
			doc, err = resume.Load(path)
			if err == nil {
				reply, err = conversation.AnalyzeResume(ctx, doc)
			}
		default:
			reply, err = conversation.Send(ctx, line)
		}

		if a.sessionRejected(err) {
			return session.ErrNotAuthenticated
		}

		var verr *resume.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(color.RedString("%v", verr))
			continue
		}

		if reply != "" {
			printBot(reply)
		}
		if err != nil {
			fmt.Println(color.New(color.Faint).Sprintf("(%v)", err))
		}
	}
}

func printBot(text string) {
	fmt.Printf("%s %s\n", color.GreenString("bot>"), text)
}
