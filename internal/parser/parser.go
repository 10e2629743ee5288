package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
)

// Loader reads a transaction table from one file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(name string, data []byte, opt Options) ([]analysis.Transaction, error)
}

// Options controls how tables are read.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the file name and header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile reads the file at path and returns its transactions.
func LoadFile(path string, opt Options) ([]analysis.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return LoadBytes(filepath.Base(path), data, opt)
}

// LoadBytes picks a loader by file name and parses data. Unknown extensions
// are read as delimited text.
func LoadBytes(name string, data []byte, opt Options) ([]analysis.Transaction, error) {
	if ext := strings.ToLower(filepath.Ext(name)); unsupportedExts[ext] {
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupported)
	}
	for _, l := range registry {
		if l.CanLoad(name) {
			return l.Load(name, data, opt)
		}
	}
	return csvLoader{}.Load(name, data, opt)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format")

// binary formats that would otherwise fall through to the CSV reader
var unsupportedExts = map[string]bool{".xls": true, ".ods": true, ".docx": true, ".pdf": true}
