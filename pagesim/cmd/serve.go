package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/sim/naming"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	port        int
	openBrowser bool
	trace       traceOptions
}

func newServeCmd(cfg *config) *cobra.Command {
	opts := &serveOptions{}

	serveCmd := &cobra.Command{
		Use:   "serve [data...]",
		Short: "Load data and inspect the paging units in a browser.",
		Long: "serve loads each data argument into its own paging unit, " +
			"named PagingUnit[i], and serves them until interrupted. " +
			"Without data, \"" + defaultData + "\" is loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor := monitoring.NewMonitor().
				WithPortNumber(opts.port).
				WithBrowser(opts.openBrowser)

			tracers, err := loadUnits(cmd, cfg, opts, monitor, args)
			defer tracers.Close()

			if err != nil {
				return err
			}

			monitor.StartServer()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			<-ctx.Done()
			fmt.Fprintln(cmd.ErrOrStderr(), "Monitor stopped")

			return nil
		},
	}

	serveCmd.Flags().IntVar(&opts.port, "port", 0,
		"port of the monitor, random when below 1000")
	serveCmd.Flags().BoolVar(&opts.openBrowser, "open-browser", false,
		"open the monitor in the default browser")
	opts.trace.registerFlags(serveCmd)

	return serveCmd
}

// loadUnits creates one paging unit per data argument and registers them with
// the monitor. All the units share the tracers.
func loadUnits(
	cmd *cobra.Command,
	cfg *config,
	opts *serveOptions,
	monitor *monitoring.Monitor,
	args []string,
) (*traceSet, error) {
	if len(args) == 0 {
		args = []string{defaultData}
	}

	units := make([]*mmu.Comp, 0, len(args))
	for i := range args {
		unit := cfg.newPagingUnit(naming.BuildWithIndex("", "PagingUnit", i))
		monitor.RegisterPagingUnit(unit)
		units = append(units, unit)
	}

	tracers, err := opts.trace.attach(units, cfg.logger)
	if err != nil {
		return tracers, err
	}

	for i, unit := range units {
		err = load(cmd, unit, args[i])
		if err != nil {
			return tracers, err
		}
	}

	tracers.Flush()

	if tracers.dbFile != "" {
		tracers.reader = tracing.OpenTraceReader(tracers.dbFile)
		monitor.WithTraceReader(tracers.reader)
	}

	return tracers, nil
}
