package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rfm-cli/internal/utils"
)

var (
	anaFlags      inputFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Score a purchase log and print the RFM report",
	Long: `Score a purchase log (CSV, TSV or XLSX) with columns CustomerID, PurchaseDate,
OrderID and TransactionAmount. Recency is measured from --as-of, which defaults
to the current date and time.`,
	Example: `  rfm analyze purchases.csv --as-of 2023-10-01
  rfm analyze purchases.xlsx --sheet-name Orders --format json -o report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		popt, err := anaFlags.parseOptions(cfg)
		if err != nil {
			return err
		}
		sopt, err := anaFlags.scoreOptions(cfg)
		if err != nil {
			return err
		}
		format, err := anaFlags.outputFormat(cfg)
		if err != nil {
			return err
		}
		rep, err := scoreFile(path, popt, sopt)
		if err != nil {
			return err
		}
		out, err := render(rep, format)
		if err != nil {
			return err
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s report to %s\n", format, anaOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
}
