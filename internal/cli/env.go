package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/builder"
	"github.com/roach88/formsync/internal/config"
	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/port"
	"github.com/roach88/formsync/internal/responder"
	"github.com/roach88/formsync/internal/store"
	"github.com/roach88/formsync/internal/store/badgerkv"
	"github.com/roach88/formsync/internal/store/rediskv"
)

// env is the per-command runtime: configuration, storage and an
// initialized service.
type env struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger
	out    *OutputFormatter
	inbox  *formsync.Inbox
	svc    *formsync.Service

	// sqlite is set when the sqlite backend is in use.
	sqlite *store.Store

	closers []io.Closer

	// metrics receives the metrics dump on Close when --metrics is set.
	metrics io.Writer
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.LoadWithEnv(opts.ConfigPath, opts.getenv())
	if err != nil {
		return config.Config{}, err
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Path != "" {
		cfg.Path = opts.Path
	}
	if opts.RedisAddr != "" {
		cfg.RedisAddr = opts.RedisAddr
	}
	if opts.Simulate {
		cfg.Simulate = true
	}
	return cfg, cfg.Validate()
}

// openEnv loads configuration, opens storage and initializes the service.
// The caller must Close the env. Failures are reported through the
// formatter.
func openEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	out := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err, nil, nil)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	e := &env{
		ctx:    commandContext(cmd),
		cfg:    cfg,
		logger: logger,
		out:    out,
		inbox:  formsync.NewInbox(),
	}
	if opts.Metrics {
		e.metrics = cmd.ErrOrStderr()
	}

	backend, err := e.openBackend()
	if err != nil {
		e.Close()
		return nil, out.Fail(ExitCommandError, ErrCodeStorage, fmt.Sprintf("failed to open %s storage", cfg.Backend), err, nil, nil)
	}

	var p port.Port = port.Instrument(backend)
	if cfg.Simulate {
		simOpts := []port.SimulatedOption{
			port.WithWriteLatency(cfg.Latency.WriteMin, cfg.Latency.WriteMax),
			port.WithReadLatency(cfg.Latency.ReadMin, cfg.Latency.ReadMax),
			port.WithFailureRate(cfg.FailureRate),
			port.WithLogger(logger),
		}
		if cfg.Seed != 0 {
			simOpts = append(simOpts, port.WithSeed(cfg.Seed))
		}
		p = port.NewSimulated(p, simOpts...)
	}

	e.svc = formsync.New(p,
		formsync.WithLogger(logger),
		formsync.WithNotifier(formsync.Multi{formsync.LogNotifier{Logger: logger}, e.inbox}),
	)

	if err := e.svc.Initialize(e.ctx); err != nil {
		e.Close()
		return nil, out.Fail(ExitCommandError, ErrCodeStorage, "failed to load forms", err, nil, nil)
	}
	return e, nil
}

func (e *env) openBackend() (port.Port, error) {
	switch e.cfg.Backend {
	case config.BackendMemory:
		return port.NewMemory(), nil
	case config.BackendSQLite:
		path := e.cfg.StoragePath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		e.sqlite = st
		e.closers = append(e.closers, st)
		return st, nil
	case config.BackendBadger:
		bcfg := badgerkv.DefaultConfig(e.cfg.StoragePath())
		bcfg.Logger = e.logger.With("component", "badger")
		bcfg.GCInterval = 0
		st, err := badgerkv.Open(bcfg)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, st)
		return st, nil
	case config.BackendRedis:
		st, err := rediskv.Dial(e.ctx, e.cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, st)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", e.cfg.Backend)
	}
}

// Close releases storage in reverse open order, then writes the metrics
// when requested.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.logger.Error("error closing storage", "error", err)
		}
	}
	e.closers = nil

	if e.metrics != nil {
		if err := writeMetrics(e.metrics, prometheus.DefaultGatherer); err != nil {
			e.logger.Error("failed to write metrics", "error", err)
		}
		e.metrics = nil
	}
}

// notes returns the notifications raised so far as "severity: message".
func (e *env) notes() []string {
	open := e.inbox.Open()
	out := make([]string, len(open))
	for i, n := range open {
		out[i] = fmt.Sprintf("%s: %s", n.Severity, n.Message)
	}
	return out
}

// saveFailed reports whether an error notification was raised.
func (e *env) saveFailed() bool {
	for _, n := range e.inbox.Open() {
		if n.Severity == formsync.SeverityError {
			return true
		}
	}
	return false
}

// form resolves a form by id or unique id prefix.
func (e *env) form(ref string) (model.Form, error) {
	if f, ok := e.svc.Form(ref); ok {
		return f, nil
	}

	var match []model.Form
	for _, f := range e.svc.Forms() {
		if ref != "" && strings.HasPrefix(f.ID, ref) {
			match = append(match, f)
		}
	}
	switch len(match) {
	case 0:
		return model.Form{}, e.out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("form %q", ref), formsync.ErrFormNotFound, nil, nil)
	case 1:
		return match[0], nil
	default:
		return model.Form{}, e.out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("form prefix %q is ambiguous (%d matches)", ref, len(match)), nil, nil, nil)
	}
}

func (e *env) builder(formID string) (*builder.Session, error) {
	b, err := builder.Open(e.svc, formID,
		builder.WithDebounce(e.cfg.Timing.Debounce),
		builder.WithSavingGrace(e.cfg.Timing.SavingGrace),
		builder.WithSettleDelay(e.cfg.Timing.SettleDelay),
		builder.WithLogger(e.logger),
	)
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, ErrCodeNotFound, "failed to open builder", err, nil, nil)
	}
	return b, nil
}

func (e *env) responder(formID string) (*responder.Session, error) {
	r, err := responder.Open(e.svc, formID,
		responder.WithDebounce(e.cfg.Timing.Debounce),
		responder.WithLogger(e.logger),
	)
	if err != nil {
		code := ExitCommandError
		if errors.Is(err, formsync.ErrNotPublished) {
			code = ExitFailure
		}
		return nil, e.out.Fail(code, ErrCodeRejected, "failed to open responses", err, nil, nil)
	}
	return r, nil
}
