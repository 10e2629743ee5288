package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/rfm-cli/internal/config"
	"github.com/KaramelBytes/rfm-cli/internal/parser"
)

// now is the clock behind the default --as-of.
var now = time.Now

// inputFlags are the loader and scoring flags shared by analyze and
// analyze-batch.
type inputFlags struct {
	delimiter   string
	decimal     string
	thousands   string
	sheetName   string
	sheetIndex  int
	asOf        string
	buckets     int
	previewRows int
	format      string
}

func (in *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&in.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&in.decimal, "decimal", "", "decimal separator for amounts: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&in.thousands, "thousands", "", "thousands separator for amounts: ','|'.'|'space' (auto-detect if omitted)")
	fs.StringVar(&in.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&in.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.StringVar(&in.asOf, "as-of", "", "reference date for Recency, YYYY-MM-DD or RFC3339 (default: now)")
	fs.IntVar(&in.buckets, "buckets", 0, "score buckets per metric (default from config, 5)")
	fs.IntVar(&in.previewRows, "preview-rows", -1, "input rows to echo in the report (default from config, 5)")
	fs.StringVar(&in.format, "format", "", "output format: markdown|json|csv (default from config)")
}

func (in *inputFlags) parseOptions(c *cfgpkg.Global) (parser.Options, error) {
	opt := parser.Options{SheetName: in.sheetName, SheetIndex: in.sheetIndex}
	var err error
	if opt.Delimiter, err = cfgpkg.ParseDelimiter(pick(in.delimiter, c.Delimiter)); err != nil {
		return opt, fmt.Errorf("--delimiter: %w", err)
	}
	if opt.DecimalSeparator, err = cfgpkg.ParseDecimalSeparator(pick(in.decimal, c.DecimalSeparator)); err != nil {
		return opt, fmt.Errorf("--decimal: %w", err)
	}
	if opt.ThousandsSeparator, err = cfgpkg.ParseThousandsSeparator(pick(in.thousands, c.ThousandsSeparator)); err != nil {
		return opt, fmt.Errorf("--thousands: %w", err)
	}
	return opt, nil
}

// pick returns the flag value when set, else the configured one.
func pick(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

func (in *inputFlags) scoreOptions(c *cfgpkg.Global) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	opt.Buckets = c.ScoreBuckets
	opt.PreviewRows = c.PreviewRows
	if in.buckets != 0 {
		if in.buckets < 0 {
			return opt, fmt.Errorf("--buckets must be positive, got %d", in.buckets)
		}
		opt.Buckets = in.buckets
	}
	if in.previewRows >= 0 {
		opt.PreviewRows = in.previewRows
	}
	if in.asOf != "" {
		t, err := analysis.ParseAsOf(in.asOf)
		if err != nil {
			return opt, err
		}
		opt.AsOf = t
	} else {
		opt.AsOf = analysis.WallClock(now())
	}
	return opt, nil
}

func (in *inputFlags) outputFormat(c *cfgpkg.Global) (string, error) {
	f := strings.ToLower(strings.TrimSpace(in.format))
	if f == "" {
		f = c.OutputFormat
	}
	switch f {
	case "markdown", "md":
		return "markdown", nil
	case "json", "csv":
		return f, nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use markdown|json|csv)", in.format)
	}
}

// scoreFile loads and scores one file, logging any scoring warnings.
func scoreFile(path string, popt parser.Options, sopt analysis.Options) (*analysis.Report, error) {
	start := time.Now()
	txns, err := parser.LoadFile(path, popt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rep, err := analysis.Score(txns, sopt)
	if err != nil {
		return nil, err
	}
	rep.Name = filepath.Base(path)
	for _, w := range rep.Warnings {
		log.Warn().Str("file", path).Msg(w)
	}
	log.Debug().
		Str("file", path).
		Int("rows", len(rep.Rows)).
		Time("as_of", sopt.AsOf).
		Dur("took", time.Since(start)).
		Msg("scored")
	return rep, nil
}

func render(rep *analysis.Report, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		if err := rep.WriteJSON(&buf); err != nil {
			return nil, err
		}
	case "csv":
		if err := rep.WriteCSV(&buf); err != nil {
			return nil, err
		}
	default:
		buf.WriteString(rep.Markdown())
	}
	return buf.Bytes(), nil
}

func formatExt(format string) string {
	switch format {
	case "json":
		return ".rfm.json"
	case "csv":
		return ".rfm.csv"
	default:
		return ".rfm.md"
	}
}
