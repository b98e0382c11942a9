package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded versions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List versions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [version]",
	Short: "Show one version (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyListJSON bool
	historyShowRaw  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().BoolVar(&historyListJSON, "json", false, "print summaries as JSON")
	historyShowCmd.Flags().BoolVar(&historyShowRaw, "raw", false, "print markdown without terminal styling")
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyListJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc.Summaries())
	}
	fmt.Fprint(out, report.RenderList(doc.Summaries()))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	ref := "latest"
	if len(args) == 1 {
		ref = args[0]
	}
	rec, err := lookupVersion(doc, ref)
	if err != nil {
		return err
	}

	md, err := report.RenderVersion(rec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyShowRaw {
		fmt.Fprint(out, md)
		return nil
	}
	width, color := terminalWidth(out)
	rendered, err := report.RenderTerminal(md, report.TerminalOptions{Width: width, Color: color})
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}

// lookupVersion accepts "latest", "3" or "v3".
func lookupVersion(doc *core.HistoryDocument, ref string) (core.VersionRecord, error) {
	if strings.EqualFold(ref, "latest") {
		rec, ok := doc.Latest()
		if !ok {
			return core.VersionRecord{}, core.ErrNotFound("version", "latest")
		}
		return rec, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(ref), "v"))
	if err != nil {
		return core.VersionRecord{}, core.ErrValidation(core.CodeInvalidVersion,
			fmt.Sprintf("invalid version %q", ref))
	}
	rec, ok := doc.Version(n)
	if !ok {
		return core.VersionRecord{}, core.ErrNotFound("version", ref)
	}
	return rec, nil
}
