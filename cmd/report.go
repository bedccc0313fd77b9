package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/widgetprobe/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Re-render an existing JSON run summary as JUnit XML.",
	Long: `Reads the report.json produced by a previous run and writes the JUnit XML
view of it. Useful when CI archives only the JSON artifact and the XML needs
to be regenerated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read run summary %s: %w", args[0], err)
		}

		var summary report.Summary
		if err := jsoniter.Unmarshal(data, &summary); err != nil {
			return fmt.Errorf("failed to decode run summary: %w", err)
		}

		out, _ := cmd.Flags().GetString("output")
		if err := summary.WriteJUnit(out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d cases, %d failed)\n",
			out, len(summary.Cases), summary.Failed())
		return nil
	},
}

func init() {
	reportCmd.Flags().StringP("output", "o", "junit.xml", "path of the JUnit XML output")
	rootCmd.AddCommand(reportCmd)
}
