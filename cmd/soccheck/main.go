// Command soccheck reviews a SOC audit report from the command line. It
// runs the same pipeline as the API server: extract the report text,
// evaluate every checklist rule through the model endpoint (or the keyword
// fallback), and aggregate a compliance score.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/soc-review/backend/internal/evaluation"
	"github.com/soc-review/backend/internal/ingestion"
	"github.com/soc-review/backend/internal/llm"
	"github.com/soc-review/backend/internal/review"
	"github.com/soc-review/backend/internal/rules"
	"github.com/soc-review/backend/pkg/logger"
)

var (
	rulesPath   string
	provider    string
	baseURL     string
	modelName   string
	offline     bool
	asJSON      bool
	timeoutSecs int
	verbose     bool

	// criticalFailures feeds the process exit code after a completed review.
	criticalFailures int
)

var (
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	passLabel     = color.New(color.FgHiGreen).Sprint("✓ PASS")
	failLabel     = color.New(color.FgHiRed).Sprint("✗ FAIL")
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "soccheck <report.docx>",
	Short: "Review a SOC audit report against the compliance checklist",
	Long: `soccheck reviews a SOC audit report without the API server.
It extracts the text of a .docx report, evaluates every checklist rule
through the configured model endpoint (or keyword matching with --offline),
and prints per-rule verdicts with an overall compliance score.

Exit codes: 0 when no critical rule is unsatisfied, 1 when at least one
critical rule fails, 2 on usage or processing errors.`,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	RunE:              run,
}

func init() {
	rootCmd.Flags().StringVar(&rulesPath, "rules", "./configs/soc_checklist.json", "Checklist JSON file")
	rootCmd.Flags().StringVar(&provider, "provider", "ollama", "Model provider (ollama or openai)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", envOr("OLLAMA_API_URL", llm.DefaultBaseURL), "Model endpoint base URL")
	rootCmd.Flags().StringVar(&modelName, "model", envOr("OLLAMA_MODEL", "llama3.2"), "Model to evaluate rules with")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Skip the model endpoint and evaluate with keyword matching only")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Print the full review result as JSON")
	rootCmd.Flags().IntVar(&timeoutSecs, "timeout", 300, "Review timeout in seconds")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix, err)
		os.Exit(2)
	}
	if criticalFailures > 0 {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		if err := logger.Init("debug", "console", "stderr"); err != nil {
			return err
		}
		defer logger.Sync()
	}

	store, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}

	step(1, "Extracting text from %s", filepath.Base(args[0]))
	text, err := ingestion.ExtractFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	generator, err := connect(ctx)
	if err != nil {
		return err
	}

	evaluator := evaluation.NewEvaluator(generator, evaluation.Config{})
	engine := review.NewEngine(store, evaluator, nil, review.Config{
		Model:   modelName,
		Timeout: time.Duration(timeoutSecs) * time.Second,
	})

	step(2, "Evaluating %d rules", store.Count())
	result := engine.Review(ctx, text)

	for _, o := range result.Results {
		if !o.Satisfied && o.Importance == rules.ImportanceCritical {
			criticalFailures++
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

// connect resolves the generator for this run. Offline mode and an
// unreachable endpoint both yield nil, which routes every rule through the
// keyword fallback instead of burning retries rule by rule.
func connect(ctx context.Context) (llm.Generator, error) {
	if offline {
		return nil, nil
	}

	generator, err := llm.New(llm.Options{
		Provider: provider,
		BaseURL:  baseURL,
		Model:    modelName,
		APIKey:   os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return nil, err
	}

	if !generator.Reachable(ctx) {
		fmt.Fprintf(os.Stderr, "%s model endpoint unreachable at %s, evaluating with keyword matching\n", warningPrefix, baseURL)
		return nil, nil
	}

	return generator, nil
}

// step prints pipeline progress in table mode. JSON mode keeps stdout as
// pure result payload.
func step(n int, format string, a ...any) {
	if asJSON {
		return
	}
	fmt.Printf("[%d/2] %s...\n", n, fmt.Sprintf(format, a...))
}

func printResult(result *review.Result) {
	fmt.Println()

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"Status", "ID", "Rule", "Importance", "Source", "Confidence"})

	for _, o := range result.Results {
		status := passLabel
		if !o.Satisfied {
			status = failLabel
		}
		_ = table.Append([]string{
			status,
			o.RuleID,
			o.RuleName,
			string(o.Importance),
			string(o.Source),
			fmt.Sprintf("%.2f", o.Confidence),
		})
	}
	_ = table.Render()

	printFindings(result)

	fmt.Println()
	fmt.Printf("Compliance score:   %s\n", scoreColor(result.ComplianceScore))
	fmt.Printf("Rules satisfied:    %d of %d\n", result.SatisfiedRules, result.TotalRules)
	fmt.Printf("Critical failures:  %d\n", criticalFailures)
	fmt.Printf("Elapsed:            %s\n", time.Duration(result.ElapsedMS)*time.Millisecond)
	fmt.Println()

	if criticalFailures == 0 {
		fmt.Printf("%s review passed, no critical rules unsatisfied\n", successPrefix)
	} else {
		fmt.Printf("%s review failed, %d critical rule(s) unsatisfied\n", errorPrefix, criticalFailures)
	}
}

// printFindings lists the model's reasoning for every unsatisfied rule.
func printFindings(result *review.Result) {
	first := true
	for _, o := range result.Results {
		if o.Satisfied {
			continue
		}
		if first {
			fmt.Println("\nFindings:")
			first = false
		}
		fmt.Printf("  %s %s [%s]\n    %s\n", errorPrefix, o.RuleName, strings.ToUpper(string(o.Importance)), o.Reasoning)
	}
}

func scoreColor(score float64) string {
	s := fmt.Sprintf("%.2f%%", score)
	switch {
	case score >= 80:
		return green(s)
	case score >= 50:
		return yellow(s)
	default:
		return red(s)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
