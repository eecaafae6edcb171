package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"kedaipos/backend/internal/domain"
)

// csvHeader matches the agreed export contract: one row per sale, items packed
// into a single "name(qty); name(qty)" column. encoding/csv handles the
// quote-doubling the format requires.
var csvHeader = []string{
	"id", "time", "pay_method", "items", "subtotal", "discount",
	"tax_rate_percent", "service_rate_percent", "total", "cash_tendered", "change",
}

func WriteSales(w io.Writer, records []domain.SaleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.PayMethod,
			FormatItems(r.Lines),
			strconv.FormatInt(r.Subtotal, 10),
			strconv.FormatInt(r.DiscountAmount, 10),
			formatRate(r.TaxRateApplied),
			formatRate(r.ServiceRateApplied),
			strconv.FormatInt(r.Total, 10),
			strconv.FormatInt(r.CashTendered, 10),
			strconv.FormatInt(r.Change, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatItems packs line items as `name(qty); name(qty)`.
func FormatItems(lines []domain.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s(%d)", line.DisplayName, line.Quantity))
	}
	return strings.Join(parts, "; ")
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
