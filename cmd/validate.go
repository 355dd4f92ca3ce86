package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	var offline bool
	var capacity int

	cmd := &cobra.Command{
		Use:   "validate <program.toml>...",
		Short: "Check sequence programs without hardware",
		Long: `Parses each program and, unless --offline is given, runs it against the built-in ` +
			`controller simulator to report the same validation diagnostics the device would. ` +
			`Exits non-zero if any program fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			failed := 0
			for _, path := range args {
				if err := checkProgram(cmd.Context(), cmd, path, offline, capacity); err != nil {
					failed++
				}
			}
			if failed > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d of %d programs failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Only parse and range-check, skip the simulated device")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Pattern table capacity (0 for the controller default)")
	return cmd
}

func checkProgram(ctx context.Context, cmd *cobra.Command, path string, offline bool, capacity int) error {
	out := cmd.OutOrStdout()

	p, err := program.Load(path)
	if err != nil {
		printError(out, path, err)
		return err
	}

	if offline {
		entries, _ := p.PatternEntries()
		printResult(out, path, program.Result{Name: p.Name, Entries: len(entries)})
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	session := device.NewSession(device.NewSimulator(), nil)
	if err := session.Connect(ctx); err != nil {
		printError(out, path, err)
		return err
	}
	defer session.Close()

	// Starting is irrelevant for a check and would fail on a warning.
	p.Start = false
	applier := &program.Applier{
		Controller: sequencer.New(session, sequencer.Options{Capacity: capacity}),
		Logger:     logging.GetLogger("program"),
	}
	res, err := applier.Apply(ctx, p, path)
	if err != nil && !errors.Is(err, sequencer.ErrValidationFailed) {
		printError(out, path, err)
		return err
	}
	printResult(out, path, res)
	return err
}
