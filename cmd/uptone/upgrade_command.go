package main

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"uptone/internal/items"
	"uptone/internal/orchestrator"
)

func newUpgradeCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "upgrade <directory>",
		Short: "Match and download upgrades for every file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ctx, args[0], flags, true)
		},
	}
	bindSessionFlags(&flags, cmd.Flags())
	return cmd
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "match <directory>",
		Short: "Match files against the remote catalog without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ctx, args[0], flags, false)
		},
	}
	bindSessionFlags(&flags, cmd.Flags())
	return cmd
}

// runBatch is the shared batch driver: scan, match, optionally
// download, then summarize. Per-item failures show up in the summary
// and never produce a non-zero exit.
func runBatch(cmd *cobra.Command, cmdCtx *commandContext, dir string, flags sessionFlags, download bool) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cfg, cmd.Flags().Changed); err != nil {
		return err
	}

	sess, err := openSession(cfg, dir)
	if err != nil {
		return err
	}
	defer sess.close()

	out := cmd.OutOrStdout()
	if len(sess.tracks) == 0 {
		fmt.Fprintln(out, "No upgradeable audio files found.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = sess.runContext(ctx)

	if err := sess.seed(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		total := len(sess.tracks)
		for event := range sess.orch.Events() {
			printEvent(out, event, total)
		}
	}()

	fmt.Fprintf(out, "Matching %d files from %s...\n", len(sess.tracks), dir)
	matchSummary, matchErr := sess.orch.MatchAll(ctx)

	var downloadSummary orchestrator.Summary
	var downloadErr error
	if download && matchErr == nil {
		fmt.Fprintln(out, "Downloading matched files...")
		downloadSummary, downloadErr = sess.orch.DownloadAll(ctx)
	}

	sess.orch.CloseEvents()
	wg.Wait()

	if err := printSummary(cmd, sess, matchSummary, downloadSummary, download); err != nil {
		return err
	}

	if matchErr != nil {
		return matchErr
	}
	return downloadErr
}

func printEvent(out io.Writer, event orchestrator.Event, total int) {
	position := fmt.Sprintf("[%d/%d]", event.Index+1, total)
	switch {
	case event.Status == items.StatusMatchFailed:
		fmt.Fprintf(out, "%s %s: no match found\n", position, event.Path)
	case event.Status == items.StatusDownloadFailed:
		fmt.Fprintf(out, "%s %s: download failed\n", position, event.Path)
	case event.Status.Matched() && event.Status.CanDownload():
		fmt.Fprintf(out, "%s %s -> %s\n", position, event.Path, event.Match)
	default:
		fmt.Fprintf(out, "%s %s: %s\n", position, event.Path, event.Status.Display())
	}
}

func printSummary(cmd *cobra.Command, sess *session, matchSummary, downloadSummary orchestrator.Summary, download bool) error {
	out := cmd.OutOrStdout()

	list, err := sess.store.List(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(list))
	for _, item := range list {
		matchText := "-"
		if item.Match.Matched() {
			matchText = item.Match.Title
			if item.Match.Artist != "" {
				matchText = item.Match.Artist + " - " + item.Match.Title
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.Index+1),
			item.Path,
			matchText,
			item.Status.Display(),
		})
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "File", "Match", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))

	fmt.Fprintf(out, "\nMatched %d, failed %d, skipped %d of %d files.\n",
		matchSummary.Succeeded, matchSummary.Failed, matchSummary.Skipped, matchSummary.Total)
	if download {
		fmt.Fprintf(out, "Downloaded %d, failed %d.\n",
			downloadSummary.Succeeded, downloadSummary.Failed)
	}
	return nil
}
