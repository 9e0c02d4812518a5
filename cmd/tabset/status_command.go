package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tabset/internal/catalog"
	"tabset/internal/preflight"
)

const recentRunLimit = 10

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and recent run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, status := range preflight.CheckTools(cfg) {
				kind := statusOK
				detail := status.Command
				if !status.Available {
					kind = statusError
					detail = status.Detail
				}
				fmt.Fprintln(stdout, renderStatusLine(status.Name, kind, detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Recent Runs", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows, err := recentRunRows(cmd.Context(), ctx)
			if err != nil {
				fmt.Fprintln(stdout, renderStatusLine("Catalog", statusWarn, err.Error(), colorize))
				return nil
			}
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No recorded runs")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Stage", "Status", "Started", "Elapsed", "Scanned", "Written", "Skipped", "Failed"},
				rows,
				[]columnAlignment{
					alignLeft, alignLeft, alignLeft, alignRight,
					alignRight, alignRight, alignRight, alignRight,
				},
			))
			return nil
		},
	}
}

func recentRunRows(ctx context.Context, cctx *commandContext) ([][]string, error) {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, recentRunLimit)
	if err != nil {
		return nil, err
	}

	titler := cases.Title(language.English)
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.Stage,
			titler.String(string(run.Status)),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runElapsed(run),
			strconv.Itoa(run.Counts.Scanned),
			strconv.Itoa(run.Counts.Written),
			strconv.Itoa(run.Counts.Skipped),
			strconv.Itoa(run.Counts.Failed),
		})
	}
	return rows, nil
}

func runElapsed(run catalog.Run) string {
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
