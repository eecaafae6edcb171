package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"kedaipos/backend/internal/domain"
)

// Build renders a finalized SaleRecord into a printable receipt. It reads only
// the frozen record fields and the shop name; totals are never recomputed
// here, so the print always matches the log.
func Build(record domain.SaleRecord, settings domain.ShopSettings) domain.Receipt {
	text := Render(record, settings)

	// ESC/POS: initialize, body, partial cut.
	escpos := []byte{0x1b, 0x40}
	escpos = append(escpos, []byte(text)...)
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.Receipt{
		Text:         text,
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		FileName:     fmt.Sprintf("receipt-%s.bin", record.ID),
	}
}

func Render(record domain.SaleRecord, settings domain.ShopSettings) string {
	shopName := settings.ShopName
	if shopName == "" {
		shopName = "POS"
	}

	lines := []string{
		shopName,
		"========================",
		"No : " + record.ID,
		"Tgl: " + record.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}

	for _, item := range record.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", item.DisplayName, item.Quantity))
		if item.Note != "" {
			lines = append(lines, "  * "+item.Note)
		}
		lines = append(lines, fmt.Sprintf("  %d", item.UnitPrice*int64(item.Quantity)))
	}

	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %d", record.Subtotal),
	)
	// Tax, service and discount lines only appear when they moved the total.
	if record.TaxRateApplied > 0 {
		lines = append(lines, fmt.Sprintf("Pajak %s%% : %d", trimRate(record.TaxRateApplied), taxOf(record)))
	}
	if record.ServiceRateApplied > 0 {
		lines = append(lines, fmt.Sprintf("Servis %s%% : %d", trimRate(record.ServiceRateApplied), serviceOf(record)))
	}
	if record.DiscountAmount > 0 {
		lines = append(lines, fmt.Sprintf("Diskon   : -%d", record.DiscountAmount))
	}
	lines = append(lines,
		fmt.Sprintf("Total    : %d", record.Total),
		fmt.Sprintf("Bayar    : %d (%s)", record.CashTendered, record.PayMethod),
		fmt.Sprintf("Kembali  : %d", record.Change),
		"========================",
		"Terima kasih",
		"",
	)

	return strings.Join(lines, "\n")
}

// taxOf and serviceOf recover the frozen component amounts from the record's
// rates and subtotal using the same rounding the pricing engine applied.
func taxOf(record domain.SaleRecord) int64 {
	return roundComponent(record.Subtotal, record.TaxRateApplied)
}

func serviceOf(record domain.SaleRecord) int64 {
	return roundComponent(record.Subtotal, record.ServiceRateApplied)
}

func roundComponent(base int64, rate float64) int64 {
	v := float64(base) * rate / 100
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

func trimRate(rate float64) string {
	s := fmt.Sprintf("%g", rate)
	return strings.TrimSuffix(s, ".0")
}
