package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			records, err := client.History(cmd.Context(), limit)
			if err != nil {
				return wrapDaemonError(err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No renders recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				detail := record.ErrorMessage
				if detail == "" {
					detail = record.ArtifactPath
				}
				rows = append(rows, []string{
					record.ID,
					record.Scene,
					record.Quality,
					record.Status,
					formatDuration(record.DurationSeconds),
					strconv.Itoa(record.TotalAnimations),
					record.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncateStatus(detail, 48),
				})
			}
			headers := []string{"ID", "Scene", "Quality", "Status", "Duration", "Anims", "Started", "Detail"}
			fmt.Fprintln(out, renderTable(headers, rows, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of renders to show")
	return cmd
}
