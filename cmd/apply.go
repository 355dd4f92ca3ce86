package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/lcrnode/internal/program"
)

// CreateApplyCmd creates the apply command.
func CreateApplyCmd() *cobra.Command {
	var server, username, password string
	var noStart, reload bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "apply [program.toml]",
		Short: "Apply a sequence program on a running node",
		Long: `Loads a program file and sends it to a running lcrnode, which stops the sequencer, ` +
			`stages and sends the table, validates it and starts it if the program asks to. ` +
			`With --reload the node re-applies its own configured program file instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reload == (len(args) == 1) {
				return fmt.Errorf("give either a program file or --reload")
			}
			cmd.SilenceUsage = true

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client := newNodeClient(server, username, password, timeout)
			out := cmd.OutOrStdout()

			if reload {
				res, err := client.ReloadProgram(ctx)
				if err != nil {
					printError(out, server, err)
					return err
				}
				printResult(out, server, res)
				return nil
			}

			path := args[0]
			p, err := program.Load(path)
			if err != nil {
				printError(out, path, err)
				return err
			}
			if noStart {
				p.Start = false
			}
			res, err := client.ApplyProgram(ctx, p)
			if err != nil {
				printError(out, path, err)
				return err
			}
			printResult(out, path, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8090", "lcrnode API base URL")
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Basic auth username")
	cmd.Flags().StringVar(&password, "password", "password", "Basic auth password")
	cmd.Flags().BoolVar(&noStart, "no-start", false, "Stage and validate but do not start")
	cmd.Flags().BoolVar(&reload, "reload", false, "Re-apply the node's configured program file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}
