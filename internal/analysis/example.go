package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExampleTransactions returns the sample purchase log users are shown
// before they bring their own data.
func ExampleTransactions() []Transaction {
	d := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	return []Transaction{
		{"C001", d("2023-05-10"), "O001", 150.75},
		{"C002", d("2023-06-15"), "O002", 200.00},
		{"C001", d("2023-07-01"), "O003", 350.00},
		{"C003", d("2023-04-25"), "O004", 125.50},
		{"C002", d("2023-05-20"), "O005", 180.00},
		{"C004", d("2023-03-30"), "O006", 275.50},
		{"C001", d("2023-07-15"), "O007", 120.00},
		{"C003", d("2023-08-10"), "O008", 300.00},
		{"C005", d("2023-09-01"), "O009", 95.00},
	}
}

// WriteTransactionsCSV writes txns in the input layout the loaders accept.
func WriteTransactionsCSV(w io.Writer, txns []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader[:4]); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, t := range txns {
		rec := []string{
			t.CustomerID,
			t.PurchaseDate.Format("2006-01-02"),
			t.OrderID,
			strconv.FormatFloat(t.TransactionAmount, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
