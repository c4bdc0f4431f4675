package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ausgeophys/metasync/pkg/errors"
)

// newVerifyCommand creates the verify command.
func newVerifyCommand(a App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <dataset-dir>",
		Short: "Verify a dataset's files against its manifest",
		Long: `Verify recomputes the content digests of a dataset's files and compares
them with the manifest sidecar. Missing, renamed and modified files are
reported per stored entry; a renamed file is recognized by its digest when
the match is unambiguous. Added files are not drift.

The command exits non-zero when drift is detected.`,
		Example: `  metasync verify /datasets/P1180MAG`,
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			report, err := client.VerifyFiles(c.Context(), args[0])
			if report != nil {
				for _, f := range report.Findings {
					fmt.Println(f.String())
				}
			}
			if err != nil {
				if errors.IsDrift(err) {
					return fmt.Errorf("drift detected: %d finding(s) for %s", len(report.Findings), args[0])
				}
				return err
			}

			fmt.Printf("ok: %s matches its manifest\n", args[0])
			return nil
		},
	}
}
