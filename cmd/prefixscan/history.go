package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/prefixscan/internal/config"
	"github.com/nao1215/prefixscan/internal/database"
	"github.com/nao1215/prefixscan/internal/model"
	"github.com/nao1215/prefixscan/internal/report"
)

// NewHistoryCmd creates the history command.
// It lists, shows, exports and compares runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Inspect and compare saved crawl runs",
		Long: `History reads the runs that 'prefixscan crawl' saved to the database.

Without flags it compares the vocabulary of the latest two successful runs of
the target and lists the terms that appeared and disappeared. Run IDs may be
shortened to any unique prefix.

Examples:
  # List every crawled target
  prefixscan history -L

  # List the runs of a target
  prefixscan history -l words

  # Compare the latest two runs of a target
  prefixscan history words

  # Compare two specific runs
  prefixscan history --from 3f2a --to 9c41

  # Print the summary of a run as Markdown
  prefixscan history --show 9c41 -m

  # Write the vocabulary of a stored run to a file
  prefixscan history --export 9c41 -o words.json.gz`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List runs of the target (all targets when none is given)")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all targets in the database")
	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 = all)")

	// Run selection flags
	cmd.Flags().String("from", "", "ID of the older run to compare")
	cmd.Flags().String("to", "", "ID of the newer run to compare")
	cmd.Flags().String("show", "", "Print the summary of a run")
	cmd.Flags().String("export", "", "Write the vocabulary of a run to --output")
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		`Export path; ".gz" or ".zst" compresses it`)
	cmd.Flags().String("delete", "", "Delete a run from the database")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	target      string
	list        bool
	listTargets bool
	limit       int
	from        string
	to          string
	show        string
	export      string
	output      string
	remove      string
	json        bool
	markdown    bool
	dbDir       string
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (*historyOptions, error) {
	opts := &historyOptions{}
	if len(args) > 0 {
		opts.target = args[0]
	}

	flags := cmd.Flags()
	var err error
	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.listTargets, err = flags.GetBool("list-targets"); err != nil {
		return nil, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.from, err = flags.GetString("from"); err != nil {
		return nil, err
	}
	if opts.to, err = flags.GetString("to"); err != nil {
		return nil, err
	}
	if opts.show, err = flags.GetString("show"); err != nil {
		return nil, err
	}
	if opts.export, err = flags.GetString("export"); err != nil {
		return nil, err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if opts.remove, err = flags.GetString("delete"); err != nil {
		return nil, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	if (opts.from == "") != (opts.to == "") {
		return nil, errors.New("--from and --to must be given together")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false
	db, err := database.Open(opts.dbDir, dbOpts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listTargets:
		return listTargets(ctx, db, out)
	case opts.list:
		return listRuns(ctx, db, out, opts.target, opts.limit)
	case opts.remove != "":
		return deleteRun(ctx, db, out, opts.remove)
	case opts.show != "":
		return showRun(ctx, db, out, opts)
	case opts.export != "":
		return exportRun(ctx, db, out, opts.export, opts.output)
	case opts.from != "":
		return compareRuns(ctx, db, out, opts)
	case opts.target != "":
		return compareLatest(ctx, db, out, opts)
	default:
		return listTargets(ctx, db, out)
	}
}

// listTargets lists every target with saved runs.
func listTargets(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No crawled targets found in the database.")
		fmt.Fprintln(out, "\nUse 'prefixscan crawl <base-url>' to crawl an endpoint.")
		return nil
	}

	fmt.Fprintf(out, "Crawled targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'prefixscan history -l <target>' to see the runs of a target.")
	return nil
}

// listRuns prints a table of runs, newest first.
func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, target string, limit int) error {
	runs, err := db.ListRuns(ctx, target, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		if target == "" {
			fmt.Fprintln(out, "No runs found in the database.")
		} else {
			fmt.Fprintf(out, "No runs found for %s\n", target)
		}
		return nil
	}

	if target == "" {
		fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	} else {
		fmt.Fprintf(out, "Runs of %s (%d):\n\n", target, len(runs))
	}
	fmt.Fprintf(out, "  %-8s  %-19s  %-10s  %-9s  %8s  %8s  %s\n",
		"ID", "Started", "Strategy", "Status", "Terms", "Requests", "Target")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 86))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-8s  %-19s  %-10s  %-9s  %8d  %8d  %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Strategy,
			r.Status(),
			r.Terms,
			r.Requests,
			r.Target,
		)
	}

	fmt.Fprintln(out, "\nUse 'prefixscan history <target>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'prefixscan history --from <id> --to <id>' to compare specific runs.")
	return nil
}

// shortID returns the first eight characters of a run ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// loadRun resolves an ID prefix and loads the run.
func loadRun(ctx context.Context, db *database.CrawlDB, idPrefix string) (*model.Run, error) {
	id, err := db.ResolveRunID(ctx, idPrefix)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", idPrefix, err)
	}
	return db.GetRun(ctx, id)
}

func historyWriter(opts *historyOptions, out io.Writer) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case opts.markdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}

// showRun prints the summary of one stored run.
func showRun(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	run, err := loadRun(ctx, db, opts.show)
	if err != nil {
		return err
	}
	_, err = historyWriter(opts, out).Write(run)
	return err
}

// exportRun writes the vocabulary of a stored run as an artifact.
func exportRun(ctx context.Context, db *database.CrawlDB, out io.Writer, idPrefix, path string) error {
	id, err := db.ResolveRunID(ctx, idPrefix)
	if err != nil {
		return fmt.Errorf("run %q: %w", idPrefix, err)
	}
	terms, err := db.GetRunTerms(ctx, id)
	if err != nil {
		return err
	}
	if err := report.WriteArtifactFile(path, terms); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d terms of run %s to %s\n", len(terms), shortID(id), path)
	return nil
}

// deleteRun removes a stored run.
func deleteRun(ctx context.Context, db *database.CrawlDB, out io.Writer, idPrefix string) error {
	id, err := db.ResolveRunID(ctx, idPrefix)
	if err != nil {
		return fmt.Errorf("run %q: %w", idPrefix, err)
	}
	if err := db.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %s\n", id)
	return nil
}

// compareRuns diffs two runs chosen by ID.
func compareRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	older, err := loadRun(ctx, db, opts.from)
	if err != nil {
		return err
	}
	newer, err := loadRun(ctx, db, opts.to)
	if err != nil {
		return err
	}
	if older.Target.Name != newer.Target.Name {
		fmt.Fprintf(out, "Note: comparing runs of different targets (%s, %s)\n\n",
			older.Target.Name, newer.Target.Name)
	}
	_, err = historyWriter(opts, out).WriteDiff(newer.Target.Name, model.Diff(older, newer))
	return err
}

// compareLatest diffs the latest two successful runs of the target.
func compareLatest(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	runs, err := db.LatestRuns(ctx, opts.target, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("need at least two successful runs of %s to compare, found %d", opts.target, len(runs))
	}
	// LatestRuns is newest first.
	_, err = historyWriter(opts, out).WriteDiff(opts.target, model.Diff(runs[1], runs[0]))
	return err
}
