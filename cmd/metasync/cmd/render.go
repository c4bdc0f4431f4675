package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ausgeophys/metasync"
	"github.com/ausgeophys/metasync/pkg/constants"
	"github.com/ausgeophys/metasync/pkg/errors"
)

// newRenderCommand creates the render command.
func newRenderCommand(a App) *cobra.Command {
	var (
		templateFile string
		outputFile   string
		xmlOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "render <dataset-dir>",
		Short: "Render a dataset's reconciled record through a template",
		Long: `Render reconciles the dataset's metadata and executes a handlebars
template against the merged tree. Nothing is persisted: the attribute
store, the sidecar and the minting service are left untouched, so the
output previews what an update run would produce.`,
		Example: `  metasync render --template record.xml.hbs /datasets/P1180MAG
  metasync render --template record.xml.hbs --xml -f out.xml /datasets/P1180MAG`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			source, err := os.ReadFile(templateFile)
			if err != nil {
				return errors.WrapIO("read", templateFile, err)
			}

			var opts []metasync.RenderOption
			if xmlOutput {
				opts = append(opts, metasync.WithXMLOutput())
			}

			out, err := client.RenderRecord(c.Context(), args[0], string(source), opts...)
			if err != nil {
				return err
			}

			if outputFile == "" {
				fmt.Println(out)
				return nil
			}
			return os.WriteFile(outputFile, []byte(out), constants.FilePermissions)
		},
	}

	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "handlebars template file (required)")
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "write output to file instead of stdout")
	cmd.Flags().BoolVar(&xmlOutput, "xml", false, "re-indent the output as XML")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}
