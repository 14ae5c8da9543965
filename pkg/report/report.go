// Package report renders the settlement report attached to a closed cycle.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SaleRow is one settled sale inside a cycle report.
type SaleRow struct {
	SellerName    string
	SellerEmail   string
	OrderLabel    string
	OrderDate     time.Time
	Total         decimal.Decimal
	CommissionPct decimal.Decimal
	Commission    decimal.Decimal
}

// CycleReport holds everything the renderer needs to produce the artifact.
type CycleReport struct {
	Start time.Time
	End   time.Time
	Rows  []SaleRow
}

// RenderCSV produces the settlement spreadsheet: sales grouped per seller
// with a subtotal line each, then a grand total. Rows within a seller keep
// order-date order.
func RenderCSV(rep CycleReport) ([]byte, error) {
	if len(rep.Rows) == 0 {
		return nil, errors.New("cycle report has no sales")
	}

	grouped := make(map[string][]SaleRow)
	var sellers []string
	for _, row := range rep.Rows {
		if _, seen := grouped[row.SellerName]; !seen {
			sellers = append(sellers, row.SellerName)
		}
		grouped[row.SellerName] = append(grouped[row.SellerName], row)
	}
	sort.Strings(sellers)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Ciclo", rep.Start.Format(dateLayout) + " / " + rep.End.Format(dateLayout),
		"", "", "", "",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	columns := []string{"Vendedor", "Orden", "Fecha", "Total", "% Comision", "Comision"}
	if err := w.Write(columns); err != nil {
		return nil, err
	}

	grandTotal := decimal.Zero
	grandCommission := decimal.Zero
	grandCount := 0

	for _, seller := range sellers {
		rows := grouped[seller]
		sort.Slice(rows, func(i, j int) bool { return rows[i].OrderDate.Before(rows[j].OrderDate) })

		subTotal := decimal.Zero
		subCommission := decimal.Zero
		for _, row := range rows {
			record := []string{
				row.SellerName,
				row.OrderLabel,
				row.OrderDate.Format(dateLayout),
				row.Total.StringFixed(2),
				row.CommissionPct.StringFixed(2),
				row.Commission.StringFixed(2),
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
			subTotal = subTotal.Add(row.Total)
			subCommission = subCommission.Add(row.Commission)
		}

		subtotal := []string{
			"Subtotal " + seller, "", "",
			subTotal.StringFixed(2), "",
			subCommission.StringFixed(2),
		}
		if err := w.Write(subtotal); err != nil {
			return nil, err
		}

		grandTotal = grandTotal.Add(subTotal)
		grandCommission = grandCommission.Add(subCommission)
		grandCount += len(rows)
	}

	total := []string{
		"Total general", "", "",
		grandTotal.StringFixed(2), "",
		grandCommission.StringFixed(2),
	}
	if err := w.Write(total); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName builds the artifact name for a cycle closing today.
func FileName(closedAt time.Time) string {
	return "cierre-" + closedAt.Format("20060102-150405") + ".csv"
}
