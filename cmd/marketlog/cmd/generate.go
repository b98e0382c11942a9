package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/marketlog/internal/compose"
	"github.com/hugo-lorenzo-mato/marketlog/internal/config"
	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/fsutil"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new analysis version and append it to the history",
	Long: `Ask the configured model for a market analysis, extract the structured
response, and append it as the next version of the history.

Nothing is written if the model call or the extraction fails.

Examples:
  # Run with defaults (tag = today's UTC date)
  marketlog generate

  # Provide extra context from a file and print the record as JSON
  marketlog generate --context-file notes.md --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	generateTag         string
	generateContext     string
	generateContextFile string
	generateModel       string
	generateJSON        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateTag, "tag", "", "label for the new version (default: UTC date)")
	generateCmd.Flags().StringVar(&generateContext, "context", "", "additional context passed to the model")
	generateCmd.Flags().StringVar(&generateContextFile, "context-file", "", "read additional context from a file")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "model identifier (overrides model.name)")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the new record as JSON")

	generateCmd.MarkFlagsMutuallyExclusive("context", "context-file")
}

// generateOutput is what --json prints.
type generateOutput struct {
	RunID      string             `json:"runId"`
	Location   string             `json:"location"`
	DurationMs int64              `json:"durationMs"`
	Record     core.VersionRecord `json:"record"`
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := loadApp(cmd, func(cfg *config.Config) {
		if generateModel != "" {
			cfg.Model.Name = generateModel
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	contextText, err := resolveRunContext(a.cfg)
	if err != nil {
		return err
	}
	tag := generateTag
	if tag == "" {
		tag = a.cfg.Run.Tag
	}

	runner, err := a.newRunner()
	if err != nil {
		return err
	}
	result, err := runner.Run(ctx, compose.RunParams{
		Tag:     tag,
		Context: contextText,
		Model:   a.cfg.Model.Name,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if generateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(generateOutput{
			RunID:      result.RunID,
			Location:   result.Location,
			DurationMs: result.Duration.Milliseconds(),
			Record:     result.Record,
		})
	}
	printRecordSummary(out, result)
	return nil
}

func resolveRunContext(cfg *config.Config) (string, error) {
	if generateContextFile != "" {
		data, err := fsutil.ReadFileScoped(generateContextFile)
		if err != nil {
			return "", core.ErrValidation(core.CodeInvalidConfig,
				fmt.Sprintf("reading context file %s", generateContextFile)).WithCause(err)
		}
		return string(data), nil
	}
	if generateContext != "" {
		return generateContext, nil
	}
	return cfg.Run.Context, nil
}

func printRecordSummary(w io.Writer, result *compose.RunResult) {
	rec := result.Record
	fmt.Fprintf(w, "Version %d recorded (%s, %s)\n", rec.Version, rec.Tag, rec.Model)
	fmt.Fprintf(w, "Headline: %s\n", rec.Headline)
	if len(rec.Differences) > 0 {
		fmt.Fprintln(w, "Changes:")
		for _, d := range rec.Differences {
			fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(d))
		}
	}
	fmt.Fprintf(w, "History: %s\n", result.Location)
}
