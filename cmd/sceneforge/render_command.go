package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sceneforge/internal/api"
	"sceneforge/internal/logging"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var sceneFlag string
	var qualityFlag string
	var outputFlag string
	var detach bool

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a Manim scene through the daemon",
		Long: "Render submits the given Python file to the daemon and follows " +
			"progress until the render finishes. Use - to read from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}

			accepted, err := client.StartRender(cmd.Context(), api.RenderRequest{
				Source:  source,
				Scene:   sceneFlag,
				Quality: qualityFlag,
			})
			if err != nil {
				return wrapDaemonError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Render %s started for scene %s\n", accepted.ID, accepted.Scene)
			if detach {
				fmt.Fprintf(out, "Follow it with: sceneforge history\n")
				return nil
			}

			if err := followProgress(cmd.Context(), client, accepted.ID, out); err != nil {
				return err
			}
			return reportResult(cmd.Context(), client, accepted.ID, outputFlag, out)
		},
	}

	cmd.Flags().StringVarP(&sceneFlag, "scene", "s", "", "Scene class to render (auto-detected when empty)")
	cmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Render quality: low, medium, high, extra, ultra")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the finished video to this path")
	cmd.Flags().BoolVar(&detach, "detach", false, "Submit without waiting for completion")
	return cmd
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// followProgress prints progress frames until the render finishes. On a
// terminal the current frame overwrites the previous one; otherwise updates
// are sampled to keep pipe output readable.
func followProgress(ctx context.Context, client *api.Client, id string, out io.Writer) error {
	tty := stdoutIsTerminal()
	sampler := logging.NewProgressSampler(2*time.Second, 5)

	err := client.StreamEvents(ctx, id, func(event api.ProgressEvent) {
		if event.Done {
			return
		}
		if tty {
			fmt.Fprintf(out, "\r\033[K[%3d%%] %s", event.Percent, event.Status)
			return
		}
		if sampler.ShouldLog(float64(event.Percent)) {
			fmt.Fprintf(out, "[%3d%%] %s\n", event.Percent, event.Status)
		}
	})
	if tty {
		fmt.Fprintln(out)
	}
	if err != nil {
		return wrapDaemonError(err)
	}
	return nil
}

func reportResult(ctx context.Context, client *api.Client, id, outputPath string, out io.Writer) error {
	record, err := client.Render(ctx, id)
	if err != nil {
		return wrapDaemonError(err)
	}

	if record.Status != "completed" {
		fmt.Fprintf(out, "Render %s: %s\n", id, record.Status)
		if record.ErrorMessage != "" {
			fmt.Fprintf(out, "  %s\n", record.ErrorMessage)
		}
		if record.Log != "" {
			fmt.Fprintln(out, "--- render log ---")
			fmt.Fprintln(out, strings.TrimSpace(record.Log))
		}
		return fmt.Errorf("render did not complete (status %s)", record.Status)
	}

	fmt.Fprintf(out, "Render complete in %s: %s (%s)\n",
		formatDuration(record.DurationSeconds), record.ArtifactPath, formatSize(record.ArtifactSize))

	if outputPath != "" {
		if err := client.DownloadArtifact(ctx, id, outputPath); err != nil {
			return wrapDaemonError(err)
		}
		fmt.Fprintf(out, "Saved video to %s\n", outputPath)
	}
	return nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(100 * time.Millisecond).String()
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func truncateStatus(status string, limit int) string {
	if len(status) <= limit {
		return status
	}
	return strings.TrimSpace(status[:limit]) + "..."
}
