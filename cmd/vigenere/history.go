package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"vigenere/internal/metrics"
	"vigenere/internal/store"
)

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer st.Close()

	switch sub {
	case "list":
		return a.historyList(ctx, st, args)
	case "show":
		if err := needArgs(a.stderr, args, 1, "history show <id>"); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		return a.historyShow(ctx, st, id)
	case "prune":
		days := a.cfg.Storage.RetentionDays
		if len(args) > 0 {
			if days, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid days %q", args[0])
			}
		}
		if days <= 0 {
			fmt.Fprintln(a.stderr, "Usage: vigenere history prune <days>")
			return errUsage
		}
		n, err := st.DeleteBefore(ctx, time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Removed %d analyses older than %d days\n", n, days)
		return nil
	default:
		fmt.Fprintf(a.stderr, "Unknown history command: %s\n", sub)
		return errUsage
	}
}

func (a *app) historyList(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("history list", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	lang := fs.String("lang", "", "only analyses for this language")
	limit := fs.Int("limit", 20, "maximum number of analyses, 0 for all")
	digest := fs.String("digest", "", "only analyses of this ciphertext digest")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	list, err := st.ListAnalyses(ctx, store.Filter{Language: *lang, Digest: *digest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.stdout, "No analyses recorded")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tLANGUAGE\tSYMBOLS\tKEY\tDIGEST")
	for _, an := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			an.ID, an.CreatedAt.Local().Format("2006-01-02 15:04:05"), an.Language,
			an.TextLength, an.KeyLength, shortDigest(an.Digest))
	}
	return tw.Flush()
}

func (a *app) historyShow(ctx context.Context, st *store.Store, id int64) error {
	an, err := st.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Analysis %d\n", an.ID)
	fmt.Fprintf(a.stdout, "Date: %s\n", an.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.stdout, "Language: %s (kappa I.C. = %g)\n", an.Language, an.KappaIC)
	fmt.Fprintf(a.stdout, "Digest: %s\n", an.Digest)
	fmt.Fprintf(a.stdout, "Symbols: %d, coincidence groups: %d, took %s\n", an.TextLength, an.Groups, since(an.Duration))
	fmt.Fprintf(a.stdout, "Suggested key length: %d\n", an.KeyLength)

	fmt.Fprintln(a.stdout, "===[Kasiski]===")
	for _, c := range an.Kasiski {
		fmt.Fprintf(a.stdout, "%d: %.2f%%\n", c.KeyLength, c.Support)
	}
	fmt.Fprintln(a.stdout, "===[Friedman]===")
	for _, r := range an.Friedman {
		fmt.Fprintf(a.stdout, "%d: %.4f\n", r.KeyLength, r.DeltaIC)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func (a *app) cmdMetrics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	format := fs.String("format", a.cfg.Metrics.Format, "output format: prometheus or json")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	reg := a.metrics.Registry()
	if a.cfg.Storage.Enabled {
		if err := a.historyGauges(ctx, reg); err != nil {
			a.logger.Warn("history metrics unavailable", "error", err)
		}
	}

	switch *format {
	case "prometheus":
		return reg.WritePrometheus(a.stdout)
	case "json":
		return reg.WriteJSON(a.stdout)
	default:
		return fmt.Errorf("unknown metrics format %q (valid: prometheus, json)", *format)
	}
}

// historyGauges exposes the recorded history as gauges.
func (a *app) historyGauges(ctx context.Context, reg *metrics.Registry) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	reg.RegisterGauge("history_analyses", "Analyses recorded in the history.", nil).Set(int64(stats.Analyses))

	langs := make([]string, 0, len(stats.Languages))
	for l := range stats.Languages {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		reg.RegisterGauge("history_language_analyses", "Recorded analyses per language.",
			metrics.Labels{"language": l}).Set(int64(stats.Languages[l]))
	}

	for n, count := range stats.KeyLengths {
		reg.RegisterGauge("history_key_lengths", "Recorded analyses per suggested key length.",
			metrics.Labels{"key_length": strconv.Itoa(n)}).Set(int64(count))
	}
	return nil
}
