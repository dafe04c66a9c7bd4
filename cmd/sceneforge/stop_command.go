package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [id]",
		Short: "Cancel a render in progress",
		Long:  "Stop cancels the render with the given id, or the active render when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return wrapDaemonError(err)
				}
				if status.ActiveRender == nil {
					return errors.New("no render is active")
				}
				id = status.ActiveRender.ID
			}

			if err := client.StopRender(cmd.Context(), id); err != nil {
				return wrapDaemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requested stop of render %s\n", id)
			return nil
		},
	}
}
