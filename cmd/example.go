package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
	"github.com/KaramelBytes/rfm-cli/internal/utils"
)

var exOutputPath string

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print a sample purchase log in the expected input layout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var buf bytes.Buffer
		if err := analysis.WriteTransactionsCSV(&buf, analysis.ExampleTransactions()); err != nil {
			return err
		}
		if exOutputPath != "" {
			if err := utils.SafeWriteFile(exOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write example: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote example dataset to %s\n", exOutputPath)
			return nil
		}
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

func init() {
	rootCmd.AddCommand(exampleCmd)
	exampleCmd.Flags().StringVarP(&exOutputPath, "output", "o", "", "optional path to write the sample CSV")
}
