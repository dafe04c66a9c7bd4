package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes <file>",
		Short: "List renderable scene classes in a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Inspect(cmd.Context(), source)
			if err != nil {
				return wrapDaemonError(err)
			}

			out := cmd.OutOrStdout()
			if !resp.SyntaxValid {
				if resp.SyntaxLine > 0 {
					return fmt.Errorf("syntax error at line %d: %s", resp.SyntaxLine, resp.SyntaxError)
				}
				return fmt.Errorf("syntax error: %s", resp.SyntaxError)
			}
			if len(resp.SceneClasses) == 0 {
				fmt.Fprintln(out, "No scene classes found")
				return nil
			}
			for _, scene := range resp.SceneClasses {
				fmt.Fprintln(out, scene)
			}
			fmt.Fprintf(out, "\n%d animation call(s) detected\n", resp.TotalAnimations)
			return nil
		},
	}
}
