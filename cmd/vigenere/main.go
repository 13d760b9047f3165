// vigenere encrypts and decrypts with the Vigenère cipher and estimates the
// key length of a ciphertext with the Kasiski examination and the Friedman
// test.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vigenere/internal/alphabet"
	"vigenere/internal/config"
	"vigenere/internal/langs"
	"vigenere/internal/logging"
	"vigenere/internal/metrics"
	"vigenere/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errUsage marks argument errors; usage has already been printed.
var errUsage = errors.New("usage")

// app carries what every subcommand needs.
type app struct {
	cfg        *config.Config
	configPath string
	verbose    bool

	alpha   *alphabet.Alphabet
	db      *langs.DB
	logger  *logging.Logger
	metrics *metrics.AnalysisMetrics

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vigenere", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	verbose := fs.Bool("v", false, "list every candidate, not only the conclusions")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "help" {
		usage(stdout)
		return 0
	}

	a, err := newApp(*configPath, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "vigenere: %v\n", err)
		return 1
	}
	defer a.logger.Close()
	a.verbose = *verbose || a.cfg.Analysis.Verbose

	code := a.dispatch(ctx, cmd, rest)

	if a.cfg.Metrics.Enabled {
		if err := a.metrics.Registry().WriteFile(a.cfg.Metrics.Path); err != nil {
			a.logger.Warn("write metrics file failed", "path", a.cfg.Metrics.Path, "error", err)
		}
	}
	return code
}

func newApp(configPath string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.FromSettings(cfg.Logging)
	if logCfg.Output == "stderr" {
		logCfg.Writer = stderr
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logger.Debug("config loaded", "path", configPath, "log_level", logging.LevelString(logCfg.Level))

	a := &app{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		metrics:    metrics.NewAnalysisMetrics(metrics.NewRegistry("vigenere", "")),
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
	}

	if err := a.applyConfig(cfg); err != nil {
		logger.Close()
		return nil, err
	}
	return a, nil
}

// applyConfig rebuilds the alphabet and language table from cfg.
func (a *app) applyConfig(cfg *config.Config) error {
	var opts []alphabet.Option
	if cfg.Cipher.FoldAccents {
		opts = append(opts, alphabet.WithAccentFolding())
	}
	alpha, err := alphabet.New(cfg.Cipher.Alphabet, opts...)
	if err != nil {
		return err
	}

	db, err := langs.Load(cfg.Languages.StorePath)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}

	a.cfg = cfg
	a.alpha = alpha
	a.db = db
	return nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) int {
	var err error
	switch cmd {
	case "encrypt", "decrypt":
		err = a.cmdTransform(cmd, args)
	case "analyze":
		err = a.cmdAnalyze(ctx, args)
	case "stats":
		err = a.cmdStats()
	case "langs":
		err = a.cmdLangs()
	case "history":
		err = a.cmdHistory(ctx, args)
	case "metrics":
		err = a.cmdMetrics(ctx, args)
	case "watch":
		err = a.cmdWatch(ctx, args)
	case "config":
		err = a.cmdConfig(args)
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", cmd)
		usage(a.stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errReported):
		return 1
	default:
		a.metrics.RecordError()
		fmt.Fprintf(a.stderr, "vigenere: %v\n", err)
		return 1
	}
}

// errReported marks failures whose message was already written.
var errReported = errors.New("reported")

func usage(w io.Writer) {
	fmt.Fprintln(w, `vigenere - Vigenère cipher and key-length analysis

Usage: vigenere [options] <command> [args]

Commands:
  encrypt <key>              Encrypt stdin with key
  decrypt <key>              Decrypt stdin with key
  analyze [language]         Estimate the key length of stdin
  stats                      Letter frequencies, entropy and delta I.C. of stdin
  langs                      Dump the language reference table
  history [list|show|prune]  Inspect recorded analyses
  metrics [-format f]        Print analysis metrics
  watch <language> <file>    Re-analyse file whenever it changes
  config [show|init|path]    Print, create or locate the config file
  help                       Show this help message

Options:
  -config <path>  Path to config file
  -v              Verbose output`)
}

// readInput reads stdin the way every command consumes text: each line is
// trimmed and the lines are joined.
func (a *app) readInput() (string, error) {
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return alphabet.StripLineBreaks(string(data)), nil
}

// openStore opens the history database and applies retention.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if err := a.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	st, err := store.Open(a.cfg.Storage.Path, store.WithLogger(a.logger.Logger))
	if err != nil {
		return nil, err
	}
	if days := a.cfg.Storage.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if _, err := st.DeleteBefore(ctx, cutoff); err != nil {
			a.logger.Warn("prune history failed", "error", err)
		}
	}
	return st, nil
}

func needArgs(w io.Writer, args []string, n int, synopsis string) error {
	if len(args) < n {
		fmt.Fprintf(w, "Usage: vigenere %s\n", synopsis)
		return errUsage
	}
	return nil
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
