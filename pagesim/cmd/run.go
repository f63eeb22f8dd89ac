package cmd

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/spf13/cobra"
)

func newRunCmd(cfg *config) *cobra.Command {
	trace := &traceOptions{}

	runCmd := &cobra.Command{
		Use:   "run [data]",
		Short: "Load data and translate addresses interactively.",
		Long: "run loads the data, prints where each block is stored, " +
			"and then reads logical addresses to translate from the " +
			"standard input. Without data, \"" + defaultData + "\" is loaded.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit := cfg.newPagingUnit("PagingUnit")

			tracers, err := trace.attach([]*mmu.Comp{unit}, cfg.logger)
			defer tracers.Close()

			if err != nil {
				return err
			}

			err = load(cmd, unit, dataArg(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Translating logical addresses...")
			printTranslations(out, unit.TranslateAll())

			return newREPL(unit, cmd.InOrStdin(), out).run()
		},
	}

	trace.registerFlags(runCmd)

	return runCmd
}

func dataArg(args []string) string {
	if len(args) == 0 {
		return defaultData
	}

	return args[0]
}

// load stores data into the unit and prints the load table. Running out of
// logical addresses is reported but not fatal.
func load(cmd *cobra.Command, unit *mmu.Comp, data string) error {
	err := unit.LoadData([]byte(data))

	var capErr *vm.CapacityError
	if errors.As(err, &capErr) {
		slog.Warn("page capacity reached",
			"assigned", capErr.Assigned, "dropped", capErr.Dropped)
		fmt.Fprintln(cmd.OutOrStdout(), "page capacity reached")
	} else if err != nil {
		return err
	}

	printLoadTable(cmd.OutOrStdout(), unit.TranslateAll())

	return nil
}
