package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigenere/internal/analysis"
	"vigenere/internal/cipher"
	"vigenere/internal/logging"
	"vigenere/internal/store"
	"vigenere/internal/textstats"
)

func (a *app) cmdTransform(name string, args []string) error {
	if err := needArgs(a.stderr, args, 1, name+" <key>"); err != nil {
		return err
	}
	mode, err := cipher.ParseMode(name)
	if err != nil {
		return err
	}

	text, err := a.readInput()
	if err != nil {
		return err
	}

	out, err := cipher.New(a.alpha).Transform(text, args[0], mode)
	if err != nil {
		return err
	}
	a.metrics.RecordTransform(int(mode))
	a.logger.Debug("transformed", "mode", mode.String(), "key", args[0], "symbols", len([]rune(out)))

	fmt.Fprintln(a.stdout, out)
	return nil
}

// startRun tags ctx and a derived logger with a fresh run ID so that every
// line of one analysis can be correlated.
func (a *app) startRun(ctx context.Context) (context.Context, *logging.Logger) {
	ctx = logging.ContextWithRunID(ctx, a.logger.NewRunID())
	return ctx, a.logger.WithContext(ctx)
}

// analyzer builds an Analyzer from the current configuration. rec may be
// nil.
func (a *app) analyzer(rec *store.Store, log *logging.Logger) *analysis.Analyzer {
	opts := analysis.Options{
		MinGroupLen: a.cfg.Analysis.MinGroupLen,
		MinKeyLen:   a.cfg.Analysis.MinKeyLen,
		MaxKeyLen:   a.cfg.Analysis.MaxKeyLen,
		Workers:     a.cfg.Analysis.Workers,
		Alphabet:    a.alpha,
		Metrics:     a.metrics,
		Logger:      log.Logger,
	}
	if rec != nil {
		opts.Recorder = rec
	}
	return analysis.New(a.db, opts)
}

func (a *app) cmdAnalyze(ctx context.Context, args []string) error {
	language := a.cfg.Analysis.DefaultLanguage
	if len(args) > 0 {
		language = args[0]
	}

	text, err := a.readInput()
	if err != nil {
		return err
	}

	var rec *store.Store
	if a.cfg.Storage.Enabled {
		rec, err = a.openStore(ctx)
		if err != nil {
			// History is optional; the analysis still runs.
			a.logger.Warn("history unavailable", "path", a.cfg.Storage.Path, "error", err)
			rec = nil
		} else {
			defer rec.Close()
		}
	}

	ctx, log := a.startRun(ctx)
	log.Debug("analysis started", "language", language, "history", rec != nil)

	az := a.analyzer(rec, log)
	report, err := az.Analyze(ctx, text, language)
	return a.printAnalysis(report, az.Languages(), err)
}

// printAnalysis renders a report and maps the analysis error to the exit
// status. A failed recording is only a warning.
func (a *app) printAnalysis(report *analysis.Report, known []string, err error) error {
	if report == nil {
		if err == nil {
			err = errors.New("no report")
		}
		return err
	}

	analysis.PrintReport(a.stdout, report, known, a.verbose)

	switch {
	case err == nil:
		return nil
	case analysis.IsUnknownLanguage(err):
		return errReported
	default:
		fmt.Fprintf(a.stderr, "warning: %v\n", err)
		return nil
	}
}

func (a *app) cmdStats() error {
	text, err := a.readInput()
	if err != nil {
		return err
	}

	s := textstats.Summarize(text, a.alpha)
	fmt.Fprintf(a.stdout, "Letters: %d\n", s.Letters)
	for _, r := range s.Frequencies.Symbols() {
		fmt.Fprintf(a.stdout, "%c: %.4f\n", r, s.Frequencies[r])
	}
	fmt.Fprintf(a.stdout, "Entropy: %.4f bits\n", s.Entropy)
	if s.DeltaICValid {
		fmt.Fprintf(a.stdout, "Delta I.C.: %.4f\n", s.DeltaIC)
	} else {
		fmt.Fprintln(a.stdout, "Delta I.C.: n/a (fewer than two letters)")
	}
	return nil
}

func (a *app) cmdLangs() error {
	if a.verbose {
		fmt.Fprintf(a.stderr, "%d languages: %s\n", a.db.Len(), joinNames(a.db.Names()))
	}
	return a.db.Encode(a.stdout)
}

func since(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
