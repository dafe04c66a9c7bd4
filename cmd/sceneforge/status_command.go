package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and dependency availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status, err := client.Status(cmd.Context())
			if err != nil {
				if errors.Is(err, syscall.ECONNREFUSED) {
					fmt.Fprintln(out, "Daemon: not running")
					return nil
				}
				return wrapDaemonError(err)
			}

			fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "History: %s\n", status.HistoryDBPath)
			if status.ActiveRender != nil {
				active := status.ActiveRender
				fmt.Fprintf(out, "Active render: %s %s [%d%%] %s\n",
					active.ID, active.Scene, active.Percent, active.Message)
			} else {
				fmt.Fprintln(out, "Active render: none")
			}

			rows := make([][]string, 0, len(status.Dependencies))
			for _, dep := range status.Dependencies {
				detail := dep.Detail
				if detail == "" && dep.Available {
					detail = "ok"
				}
				rows = append(rows, []string{
					dep.Name,
					yesNo(dep.Available),
					yesNo(dep.Optional),
					detail,
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Available", "Optional", "Detail"}, rows))
			return nil
		},
	}
}
