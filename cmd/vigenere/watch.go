package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"vigenere/internal/alphabet"
	"vigenere/internal/config"
	"vigenere/internal/store"
	"vigenere/internal/watcher"
)

// watchSettle is how long a ciphertext file must stay unchanged before it is
// analysed.
const watchSettle = 250 * time.Millisecond

// cmdWatch re-analyses a ciphertext file every time its content settles,
// until ctx is cancelled. Config file changes apply to the next analysis.
func (a *app) cmdWatch(ctx context.Context, args []string) error {
	if err := needArgs(a.stderr, args, 2, "watch <language> <file>"); err != nil {
		return err
	}
	language, path := args[0], args[1]

	w, err := watcher.New([]string{path}, watchSettle)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Stop()

	log := a.logger.WithComponent("watch")

	var mu sync.Mutex
	if _, err := os.Stat(a.configPath); err == nil {
		loader := config.NewLoader(a.configPath, a.logger.Logger)
		if _, err := loader.Load(); err == nil {
			loader.OnChange(func(cfg *config.Config) {
				mu.Lock()
				defer mu.Unlock()
				// The loader keeps mutating its own copy on later reloads.
				if err := a.applyConfig(cfg.Clone()); err != nil {
					log.Warn("config change ignored", "error", err)
				}
			})
			if err := loader.Watch(); err != nil {
				log.Warn("config hot reload unavailable", "error", err)
			}
			defer loader.Close()
		}
	}

	var rec *store.Store
	if a.cfg.Storage.Enabled {
		if rec, err = a.openStore(ctx); err != nil {
			log.Warn("history unavailable", "path", a.cfg.Storage.Path, "error", err)
			rec = nil
		} else {
			defer rec.Close()
		}
	}

	log.Info("watching", "path", path, "language", language)
	defer func() {
		log.Info("watch stopped", "metrics", a.metrics.Snapshot())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			runCtx, runLog := a.startRun(ctx)
			runLog.Info("file changed", "path", ev.Path, "digest", shortDigest(ev.Digest), "bytes", ev.Size)

			mu.Lock()
			az := a.analyzer(rec, runLog)
			mu.Unlock()

			fmt.Fprintf(a.stdout, "=== %s (%s) ===\n", ev.Path, shortDigest(ev.Digest))
			report, err := az.Analyze(runCtx, alphabet.StripLineBreaks(ev.Text), language)
			if ctx.Err() != nil {
				return nil
			}
			if err := a.printAnalysis(report, az.Languages(), err); err != nil && err != errReported {
				fmt.Fprintf(a.stderr, "vigenere: %v\n", err)
			}
			fmt.Fprintln(a.stdout)

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}
