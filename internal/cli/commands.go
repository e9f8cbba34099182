package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/paraglidehq/snowflake"
	"github.com/paraglidehq/snowflake/internal/httpapi"
	"github.com/paraglidehq/snowflake/postgres"
	"github.com/paraglidehq/snowflake/shm"
)

func newNextCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Mint IDs and print one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			format, err := a.format()
			if err != nil {
				return err
			}
			gen, cleanup, err := a.generator(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			for range count {
				id, err := gen.Create()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id.Format(format))
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 1, "Number of IDs to mint")
	return cmd
}

func newDecodeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Print the timestamp, node and sequence encoded in IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("layout")
			layout, err := snowflake.ParseLayout(name)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDECIMAL\tTIME\tNODE\tSEQ")
			for _, arg := range args {
				id, err := snowflake.ParseFormatted(arg, format)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", arg, id.Int64(),
					layout.Timestamp(id).UTC().Format(time.RFC3339Nano), layout.Node(id), layout.Sequence(id))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("layout", "standard", "Layout the IDs were minted with: standard|nonode")
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install the snowflake functions into a postgres database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db, postgres.DefaultConfig()); err != nil {
				return err
			}
			a.logger.Info("migration complete")
			return nil
		},
	}
}

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve IDs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
			}
			format, err := a.format()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			gen, cleanup, err := a.generator(reg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := httpapi.New(httpapi.Config{
				Generator: gen,
				Format:    format,
				MaxCount:  a.cfg.HTTP.MaxMint,
				Gatherer:  reg,
				Logger:    a.logger,
			})
			return srv.ListenAndServe(ctx, a.cfg.HTTP.Addr)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func newStateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the contents of a shared state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.StatePath == "" {
				return fmt.Errorf("no state file configured (--state or SNOWFLAKE_STATE_PATH)")
			}
			st, err := shm.OpenLayout(a.cfg.StatePath, snowflake.LayoutFor(a.cfg.NodeID))
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Lock(); err != nil {
				return err
			}
			last, seq := st.LastTimestamp(), st.Sequence()
			if err := st.Unlock(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:     %s\n", st.Path())
			fmt.Fprintf(out, "layout:   %s\n", st.Layout())
			if last == 0 {
				fmt.Fprintln(out, "last:     never")
			} else {
				fmt.Fprintf(out, "last:     %d (%s)\n", last, time.UnixMilli(last).UTC().Format(time.RFC3339Nano))
			}
			fmt.Fprintf(out, "sequence: %d\n", seq)
			return nil
		},
	}
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
