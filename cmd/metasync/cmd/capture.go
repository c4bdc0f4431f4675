package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCaptureCommand creates the capture command.
func newCaptureCommand(a App) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <dataset-dir>",
		Short: "Finalize a dataset's manifest sidecar",
		Long: `Capture digests every file in the dataset directory and writes the
manifest sidecar: the dataset's identity, the capture time, the dataset
location and one digest entry per file. Working files (backups, checksums,
sidecars) are excluded.

The dataset's identity is resolved before capture and written back to the
attribute store when it was missing.`,
		Example: `  metasync capture /datasets/P1180MAG`,
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			snap, err := client.CaptureManifest(c.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("identifier: %s\n", snap.Identifier)
			fmt.Printf("captured: %s\n", snap.CapturedAt.Format(time.RFC3339))
			fmt.Printf("files: %d\n", len(snap.Files))
			return nil
		},
	}
}
