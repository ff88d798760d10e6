package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uxray-ai/uxray/internal/app"
	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/service"
)

var (
	analyzeText    string
	analyzeAnswers []string
	analyzeAccept  bool
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze an interface screenshot",
	Long: `Analyze runs a screenshot through the full pipeline: context
detection, parallel vision, analysis and synthesis stages, and produces a
prioritized improvement report.

When the detected context is too uncertain, analyze prints clarification
questions instead; answer them with repeated --answer flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "",
		"describe the screenshot and what you want from the analysis")
	analyzeCmd.Flags().StringArrayVar(&analyzeAnswers, "answer", nil,
		"answer to a clarification question (repeatable)")
	analyzeCmd.Flags().BoolVar(&analyzeAccept, "accept-low-confidence", false,
		"proceed without clarification even when context confidence is low")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"print the full result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	req := &service.AnalyzeRequest{
		ImageRef:               args[0],
		UserText:               analyzeText,
		ClarificationResponses: analyzeAnswers,
		AcceptLowConfidence:    analyzeAccept,
		Progress: func(percent int, stage core.Stage, _ map[string]interface{}) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r[%3d%%] %-10s", percent, stage)
		},
	}

	out, err := application.Orchestrator.Analyze(ctx, req)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if out.NeedsClarification {
		printQuestions(cmd, out.Questions)
		return nil
	}

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	}
	printResult(cmd, out.Result)
	return nil
}

func printQuestions(cmd *cobra.Command, questions []string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "I need a bit more context before analyzing. Re-run with --answer for each:")
	for i, q := range questions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
}

func printResult(cmd *cobra.Command, result *core.PipelineResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Analysis %s (mode: %s)\n", result.RequestKey, result.Mode)
	fmt.Fprintf(w, "Context: %s / %s (confidence %.2f)\n\n",
		result.Context.PrimaryType, result.Context.Domain, result.Context.Confidence)

	if result.Analysis != nil {
		a := result.Analysis
		fmt.Fprintf(w, "Scores: overall %.0f | usability %.0f | accessibility %.0f | design %.0f\n\n",
			a.OverallScore, a.UsabilityScore, a.A11yScore, a.DesignScore)
		if len(a.Findings) > 0 {
			fmt.Fprintln(w, "Findings:")
			for _, f := range a.Findings {
				fmt.Fprintf(w, "  [%s/%s] %s\n", f.Category, f.Severity, f.Description)
			}
			fmt.Fprintln(w)
		}
	}

	if result.Synthesis != nil {
		s := result.Synthesis
		if s.Summary != "" {
			fmt.Fprintln(w, s.Summary)
			fmt.Fprintln(w)
		}
		if len(s.ActionItems) > 0 {
			fmt.Fprintln(w, "Recommended actions:")
			for _, item := range s.ActionItems {
				fmt.Fprintf(w, "  [%s] %s (impact %s, effort %s)\n",
					item.Priority, item.Title, item.Impact, item.Effort)
			}
			fmt.Fprintln(w)
		}
	}

	if len(result.MissingStages) > 0 {
		names := make([]string, len(result.MissingStages))
		for i, st := range result.MissingStages {
			names[i] = string(st)
		}
		fmt.Fprintf(w, "Missing stages: %s\n", strings.Join(names, ", "))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}
