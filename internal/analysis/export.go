package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the column layout of the augmented table.
var CSVHeader = []string{
	"CustomerID", "PurchaseDate", "OrderID", "TransactionAmount",
	"Recency", "Frequency", "MonetaryValue",
	"RecencyScore", "FrequencyScore", "MonetaryScore",
	"RFM_Score", "Value Segment", "RFM Customer Segments",
}

// WriteCSV writes the augmented table, one line per input row.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range r.Rows {
		rec := []string{
			row.CustomerID,
			row.PurchaseDate.Format("2006-01-02"),
			row.OrderID,
			strconv.FormatFloat(row.TransactionAmount, 'f', -1, 64),
			strconv.Itoa(row.Recency),
			strconv.Itoa(row.Frequency),
			strconv.FormatFloat(row.MonetaryValue, 'f', -1, 64),
			strconv.Itoa(row.RecencyScore),
			strconv.Itoa(row.FrequencyScore),
			strconv.Itoa(row.MonetaryScore),
			strconv.Itoa(row.RFMScore),
			row.ValueSegment,
			row.CustomerSegment,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the whole report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
