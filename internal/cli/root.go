// Package cli implements the snowflake command.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/paraglidehq/snowflake"
	"github.com/paraglidehq/snowflake/internal/config"
	"github.com/paraglidehq/snowflake/postgres"
	"github.com/paraglidehq/snowflake/shm"
)

var errNoDSN = errors.New("no postgres DSN configured (--postgres-dsn or " + config.EnvPostgresDSN + ")")

// app carries the resolved configuration between the root command and its
// subcommands.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

// NewRootCommand builds the snowflake command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "snowflake",
		Short:         "Mint and inspect 64-bit time-ordered IDs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Config file (YAML or JSON)")
	f.Int64("node", 0, "Node id (0-1020; larger picks a random node, negative disables the node field)")
	f.String("state", "", "Shared state file for cross-process generation")
	f.String("postgres-dsn", "", "Use the postgres backend at this DSN")
	f.String("format", "", "ID format: base58|crockford|base64|hex|decimal")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json")

	root.AddCommand(
		newNextCommand(a),
		newDecodeCommand(a),
		newMigrateCommand(a),
		newServeCommand(a),
		newStateCommand(a),
	)
	return root
}

// load resolves configuration in order: defaults, file, environment, flags.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv(&cfg)

	f := cmd.Flags()
	if f.Changed("node") {
		cfg.NodeID, _ = f.GetInt64("node")
	}
	if f.Changed("state") {
		cfg.StatePath, _ = f.GetString("state")
	}
	if f.Changed("postgres-dsn") {
		cfg.Postgres.DSN, _ = f.GetString("postgres-dsn")
	}
	if f.Changed("format") {
		cfg.Format, _ = f.GetString("format")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}

	a.logger, err = newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if cfg.ObfuscationKey != 0 {
		snowflake.SetObfuscator(cfg.ObfuscationKey)
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q; use text|json", format)
	}
}

func (a *app) format() (snowflake.Format, error) {
	if a.cfg.Format == "" {
		return snowflake.DefaultFormat, nil
	}
	return snowflake.ParseFormat(a.cfg.Format)
}

func (a *app) openDB() (*sql.DB, error) {
	if a.cfg.Postgres.DSN == "" {
		return nil, errNoDSN
	}
	return sql.Open("postgres", a.cfg.Postgres.DSN)
}

// generator assembles a Generator from the configuration. The returned
// cleanup releases the state file, the database and the backend session.
func (a *app) generator(reg prometheus.Registerer) (*snowflake.Generator, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				a.logger.Warn("close failed", "err", err)
			}
		}
	}

	opts := []snowflake.Option{snowflake.WithLogger(a.logger)}
	if reg != nil {
		opts = append(opts, snowflake.WithMetrics(snowflake.NewMetrics(reg)))
	}
	if a.cfg.StatePath != "" {
		st, err := shm.OpenLayout(a.cfg.StatePath, snowflake.LayoutFor(a.cfg.NodeID))
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, st)
		opts = append(opts, snowflake.WithState(st))
	}
	if a.cfg.Postgres.DSN != "" {
		db, err := a.openDB()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, db)
		backend := &postgres.Backend{DB: db}
		if a.cfg.Postgres.Timeout != "" {
			d, err := time.ParseDuration(a.cfg.Postgres.Timeout)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("invalid postgres timeout: %w", err)
			}
			backend.Timeout = d
		}
		opts = append(opts, snowflake.WithBackend(backend))
	}

	gen := snowflake.NewGenerator(a.cfg.NodeID, opts...)
	closers = append(closers, gen)
	return gen, cleanup, nil
}
