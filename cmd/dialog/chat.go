package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	orchestrator "github.com/borosabel/orchestrator"
	"github.com/borosabel/orchestrator/internal/logging"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		domainPath, _ := cmd.Flags().GetString("domain")
		level, _ := cmd.Flags().GetString("log-level")
		useModel, _ := cmd.Flags().GetBool("model")

		if domainPath == "" {
			return fmt.Errorf("--domain is required")
		}

		opts := []orchestrator.Option{
			orchestrator.WithLogger(logging.New(logging.ParseLevel(level))),
		}
		if useModel {
			opts = append(opts, orchestrator.WithModelCapabilities())
		}

		orch := orchestrator.New(opts...)
		registerBuiltins(orch)

		res, err := orch.LoadDomainFile(domainPath)
		if err != nil {
			return err
		}
		if !res.Valid {
			return fmt.Errorf("domain config is invalid:\n- %s", strings.Join(res.Errors, "\n- "))
		}

		return runChat(cmd.Context(), orch)
	},
}

func init() {
	chatCmd.Flags().Bool("model", false, "Use the hosted model capabilities from the domain's model options")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, orch *orchestrator.Orchestrator) error {
	sessionID, err := orch.StartConversation(ctx, "")
	if err != nil {
		return err
	}
	defer orch.EndConversation(context.WithoutCancel(ctx), sessionID)

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	output := termenv.NewOutput(os.Stdout)
	render := newReplyRenderer(interactive)

	if interactive {
		fmt.Printf("Domain %q loaded. Type your message, or /quit to leave.\n\n", orch.ActiveDomain())
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print(output.String("you> ").Foreground(output.Color("6")).String())
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/summary" {
			fmt.Println(orch.ConversationSummary(ctx, sessionID))
			continue
		}

		reply := orch.ProcessMessage(ctx, sessionID, line)
		fmt.Print(render(reply))
	}
	return scanner.Err()
}

// newReplyRenderer renders replies through glamour when attached to a
// terminal, and as plain text otherwise (pipes, tests).
func newReplyRenderer(interactive bool) func(string) string {
	if !interactive {
		return func(s string) string { return s + "\n" }
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return out
	}
}
