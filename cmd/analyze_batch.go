package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rfm-cli/internal/utils"
)

var (
	abFlags  inputFlags
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Score several purchase logs with progress, one report per file",
	Long: `Score every file matched by the given paths or glob patterns. Every file is
scored against the same --as-of. With --out-dir each report is written next to
the others as <name>.rfm.<ext>; existing reports are never overwritten, a
__N suffix is added instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		popt, err := abFlags.parseOptions(cfg)
		if err != nil {
			return err
		}
		sopt, err := abFlags.scoreOptions(cfg)
		if err != nil {
			return err
		}
		format, err := abFlags.outputFormat(cfg)
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := scoreFile(path, popt, sopt)
			if err != nil {
				return err
			}
			body, err := render(rep, format)
			if err != nil {
				return err
			}
			if abOutDir == "" {
				if !abQuiet {
					if _, err := out.Write(body); err != nil {
						return err
					}
				}
				continue
			}

			base := filepath.Base(path)
			name := strings.TrimSuffix(base, filepath.Ext(base))
			if abFlags.sheetName != "" && strings.EqualFold(filepath.Ext(base), ".xlsx") {
				name += "__sheet-" + utils.Slug(abFlags.sheetName, "sheet")
			}
			target := utils.UniquePath(abOutDir, name, formatExt(format))
			if !abQuiet && filepath.Base(target) != name+formatExt(format) {
				fmt.Fprintf(out, "⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(target))
			}
			if err := utils.SafeWriteFile(target, body); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", target)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd.Flags())
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write one report per input (stdout if omitted)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
