package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/verbatim/internal/orchestrator"
)

var (
	askJSON    bool
	askVerbose bool
	askTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed knowledge base",
	Long: `Ask a natural language question against the indexed knowledge base.

This command:
1. Retrieves the chunks most similar to your question
2. Refuses if the best match is below the similarity threshold
3. Asks the LLM to answer with a verbatim quote from those chunks
4. Refuses if the quote cannot be found in the chunks

Run "verbatim index <file>" first to build the knowledge base.

Examples:
  verbatim ask "Do you deliver to Lagos?"
  verbatim ask "What are your opening hours?" --verbose
  verbatim ask "Can I get a refund?" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw response contract as JSON")
	askCmd.Flags().BoolVar(&askVerbose, "verbose", false, "Show pipeline logs, evidence and the validator verdict")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "Deadline for retrieval and generation")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	if !askVerbose {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	// Styling
	var (
		headerColor   = lipgloss.Color("#F780FF") // Bright pink
		questionColor = lipgloss.Color("#8BE9FD") // Cyan
		answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		contextColor  = lipgloss.Color("#6272A4") // Muted purple
		errorColor    = lipgloss.Color("#FF5555") // Red
		refusalColor  = lipgloss.Color("#FFB86C") // Orange
	)

	headerStyle := lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	questionStyle := lipgloss.NewStyle().Foreground(questionColor).Italic(true)
	answerStyle := lipgloss.NewStyle().Foreground(answerColor)
	contextStyle := lipgloss.NewStyle().Foreground(contextColor).Italic(true)
	errorStyle := lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	refusalStyle := lipgloss.NewStyle().Foreground(refusalColor).Bold(true)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	rt, err := orchestrator.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer rt.Close()

	outcome, err := rt.Pipeline.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if askVerbose {
			return enc.Encode(outcome)
		}
		return enc.Encode(outcome.Response)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Question:"))
	fmt.Fprintln(out, questionStyle.Render(question))
	fmt.Fprintln(out)

	resp := outcome.Response
	if resp.Answer != nil {
		fmt.Fprintln(out, headerStyle.Render("Answer:"))
		fmt.Fprintln(out, answerStyle.Render(*resp.Answer))
		fmt.Fprintln(out)
		fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Sources: %s", strings.Join(resp.Sources, ", "))))
	} else {
		fmt.Fprintln(out, refusalStyle.Render("No answer:"))
		fmt.Fprintln(out, answerStyle.Render(*resp.Reason))
	}
	fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Confidence: %.2f", resp.Confidence)))

	if askVerbose {
		fmt.Fprintln(out)
		fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Evidence: %s", strings.Join(outcome.Evidence, ", "))))
		if outcome.Verdict != nil {
			if outcome.Verdict.Accepted {
				fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Quoted span: %q", outcome.Verdict.QuotedSpan)))
			} else {
				fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Verdict: %s", outcome.Verdict.RejectionReason)))
			}
			fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Candidate (%s): %s", rt.Model, outcome.Candidate)))
		}
		fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("Took %s", outcome.Duration.Round(time.Millisecond))))
	}
	fmt.Fprintln(out)

	return nil
}
