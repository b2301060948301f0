package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeffersonwarrior/fetchkit/journal"
)

type journalFlags struct {
	host   string
	method string
	status int
	failed bool
	since  time.Duration
	limit  int
	asJSON bool
}

func (cli *CLI) newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded requests",
		Long: `Inspect the request journal. Requests are recorded when the journal is
enabled in the config file, with FETCHKIT_JOURNAL=true, or with --journal.

Examples:
  fetchkit journal list --failed --since 1h
  fetchkit journal stats --host api.example.com
  fetchkit journal prune --older-than 720h`,
	}

	cmd.AddCommand(cli.newJournalListCommand(), cli.newJournalStatsCommand(), cli.newJournalPruneCommand())
	return cmd
}

func (f *journalFlags) register(cmd *cobra.Command, withLimit bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.host, "host", "", "Only entries for this host")
	flags.StringVar(&f.method, "method", "", "Only entries with this method")
	flags.IntVar(&f.status, "status", 0, "Only entries with this status code")
	flags.BoolVar(&f.failed, "failed", false, "Only failed entries")
	flags.DurationVar(&f.since, "since", 0, "Only entries newer than this (e.g. 1h)")
	flags.BoolVar(&f.asJSON, "json", false, "Output in JSON format")
	if withLimit {
		flags.IntVarP(&f.limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	}
}

func (f *journalFlags) filter(now time.Time) *journal.Filter {
	filter := &journal.Filter{FailedOnly: f.failed, Limit: f.limit}
	if f.host != "" {
		filter.Host = &f.host
	}
	if f.method != "" {
		filter.Method = &f.method
	}
	if f.status != 0 {
		filter.StatusCode = &f.status
	}
	if f.since > 0 {
		since := now.Add(-f.since)
		filter.Since = &since
	}
	return filter
}

// openJournal opens the configured journal database.
func (cli *CLI) openJournal() (*journal.DB, error) {
	e, err := cli.setup()
	if err != nil {
		return nil, err
	}
	return journal.Open(e.cfg.Journal.Path)
}

func (cli *CLI) newJournalListCommand() *cobra.Command {
	f := &journalFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cli.openJournal()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.List(f.filter(time.Now()))
			if err != nil {
				return err
			}

			if f.asJSON {
				return cli.writeJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cli.out, "No entries")
				return nil
			}

			tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tMETHOD\tSTATUS\tLATENCY\tURL\tERROR")
			for _, e := range entries {
				status := "-"
				if e.StatusCode != nil {
					status = fmt.Sprint(*e.StatusCode)
				}
				errText := ""
				if e.ErrorMessage != nil {
					errText = *e.ErrorMessage
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%dms\t%s\t%s\n",
					e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Method, status, e.LatencyMs, e.URL, errText)
			}
			return tw.Flush()
		},
	}
	f.register(cmd, true)
	return cmd
}

func (cli *CLI) newJournalStatsCommand() *cobra.Command {
	f := &journalFlags{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cli.openJournal()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.Stats(f.filter(time.Now()))
			if err != nil {
				return err
			}

			if f.asJSON {
				return cli.writeJSON(stats)
			}

			fmt.Fprintf(cli.out, "Requests:     %d\n", stats.TotalRequests)
			fmt.Fprintf(cli.out, "Succeeded:    %d (%.1f%%)\n", stats.SuccessCount, stats.SuccessRate*100)
			fmt.Fprintf(cli.out, "Failed:       %d\n", stats.ErrorCount)
			fmt.Fprintf(cli.out, "Avg latency:  %.0fms\n", stats.AvgLatencyMs)
			fmt.Fprintf(cli.out, "Max latency:  %dms\n", stats.MaxLatencyMs)

			if len(stats.RequestsByHost) > 0 {
				fmt.Fprintln(cli.out, "\nBy host:")
				hosts := make([]string, 0, len(stats.RequestsByHost))
				for h := range stats.RequestsByHost {
					hosts = append(hosts, h)
				}
				sort.Strings(hosts)
				for _, h := range hosts {
					fmt.Fprintf(cli.out, "  %-30s %d\n", h, stats.RequestsByHost[h])
				}
			}
			if len(stats.RequestsByCode) > 0 {
				fmt.Fprintln(cli.out, "\nBy status:")
				codes := make([]int, 0, len(stats.RequestsByCode))
				for c := range stats.RequestsByCode {
					codes = append(codes, c)
				}
				sort.Ints(codes)
				for _, c := range codes {
					label := fmt.Sprint(c)
					if c == 0 {
						label = "none"
					}
					fmt.Fprintf(cli.out, "  %-30s %d\n", label, stats.RequestsByCode[c])
				}
			}
			if len(stats.ErrorsByKind) > 0 {
				kinds := make([]string, 0, len(stats.ErrorsByKind))
				for k, n := range stats.ErrorsByKind {
					kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
				}
				sort.Strings(kinds)
				fmt.Fprintf(cli.out, "\nErrors: %s\n", strings.Join(kinds, ", "))
			}
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (cli *CLI) newJournalPruneCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return usageErr(fmt.Errorf("--older-than must be positive"))
			}
			db, err := cli.openJournal()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Deleted %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete entries older than this")
	return cmd
}

func (cli *CLI) writeJSON(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
