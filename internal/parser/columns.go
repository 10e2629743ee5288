package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
)

// Required column names, matched case-insensitively.
const (
	ColCustomerID        = "CustomerID"
	ColPurchaseDate      = "PurchaseDate"
	ColOrderID           = "OrderID"
	ColTransactionAmount = "TransactionAmount"
)

// RequiredColumns lists the columns every input table must carry.
var RequiredColumns = []string{ColCustomerID, ColPurchaseDate, ColOrderID, ColTransactionAmount}

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrParse is returned when a date or amount cannot be parsed.
	ErrParse = errors.New("parse error")
)

// ParseError describes an unparseable cell. Row is 1-based and counts data
// rows, not the header.
type ParseError struct {
	Row    int
	Column string
	Value  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s value %q", e.Row, e.Column, e.Value)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// columnIndex maps each required column to its position in header.
type columnIndex struct {
	customer, date, order, amount int
}

func resolveColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	var missing []string
	lookup := func(name string) int {
		i, ok := pos[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	idx := columnIndex{
		customer: lookup(ColCustomerID),
		date:     lookup(ColPurchaseDate),
		order:    lookup(ColOrderID),
		amount:   lookup(ColTransactionAmount),
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// rowSource yields raw records; ok is false once exhausted.
type rowSource func() (rec []string, ok bool, err error)

// readTransactions consumes a header and its data rows. Empty lines, and for
// spreadsheets rows whose cells are all empty, are skipped; every other row
// becomes exactly one transaction, so a delimited line like ",,," fails on its
// date.
func readTransactions(header []string, next rowSource, opt Options, sheet bool) ([]analysis.Transaction, error) {
	idx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	var out []analysis.Transaction
	row := 0
	for {
		rec, ok, err := next()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		if !ok {
			break
		}
		if (sheet && blank(rec)) || (!sheet && len(rec) == 1 && blank(rec)) {
			continue
		}
		row++
		cell := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		rawDate := cell(idx.date)
		date, ok := parseDate(rawDate, sheet)
		if !ok {
			return nil, &ParseError{Row: row, Column: ColPurchaseDate, Value: rawDate}
		}
		rawAmount := cell(idx.amount)
		amount, ok := parseNumeric(rawAmount, opt)
		if !ok {
			return nil, &ParseError{Row: row, Column: ColTransactionAmount, Value: rawAmount}
		}
		out = append(out, analysis.Transaction{
			CustomerID:        cell(idx.customer),
			PurchaseDate:      date,
			OrderID:           cell(idx.order),
			TransactionAmount: amount,
		})
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02", time.RFC3339, "2006/01/02", "01/02/2006", "02.01.2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006",
}

// parseDate accepts the layouts above. Workbooks store dates as serial day
// numbers, which are accepted when excelDates is set.
func parseDate(s string, excelDates bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	if excelDates {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 2958466 {
			return excelEpoch.Add(time.Duration(math.Round(f*86400)) * time.Second), true
		}
	}
	return time.Time{}, false
}

// excelEpoch is day zero of the 1900 date system, adjusted for the phantom
// 1900-02-29.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	for _, sym := range []string{"$", "€", "£"} {
		raw = strings.TrimPrefix(raw, sym)
	}
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 && thou != 0 {
		// an explicit grouping separator fixes the decimal one
		dec = '.'
		if thou == '.' {
			dec = ','
		}
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			// 1,250 and 1,250,000 read as grouped thousands, 12,5 as a decimal
			if strings.Count(raw, ",") > 1 || len(raw)-cpos-1 == 3 {
				dec = '.'
				thou = ','
			} else {
				dec = ','
			}
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
