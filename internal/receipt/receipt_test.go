package receipt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"kedaipos/backend/internal/domain"
)

func sampleRecord() domain.SaleRecord {
	return domain.SaleRecord{
		ID:          "sale-abc",
		CreatedAt:   time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC),
		TimestampMs: 1,
		Lines: []domain.CartLine{
			{DisplayName: "Matcha OG (Large) + Boba", Quantity: 2, UnitPrice: 21000, Note: "less ice"},
		},
		Subtotal:       42000,
		TaxRateApplied: 10,
		Total:          46200,
		PayMethod:      domain.PayCash,
		CashTendered:   50000,
		Change:         3800,
	}
}

func TestRenderUsesFrozenRecordFields(t *testing.T) {
	text := Render(sampleRecord(), domain.ShopSettings{ShopName: "Kedai Test"})

	for _, want := range []string{
		"Kedai Test",
		"No : sale-abc",
		"Matcha OG (Large) + Boba x2",
		"  * less ice",
		"Subtotal : 42000",
		"Pajak 10% : 4200",
		"Total    : 46200",
		"Bayar    : 50000 (cash)",
		"Kembali  : 3800",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
}

func TestRenderOmitsZeroComponents(t *testing.T) {
	record := sampleRecord()
	record.TaxRateApplied = 0
	record.DiscountAmount = 0
	text := Render(record, domain.ShopSettings{})

	if strings.Contains(text, "Pajak") {
		t.Fatalf("zero tax must not print:\n%s", text)
	}
	if strings.Contains(text, "Servis") {
		t.Fatalf("zero service must not print:\n%s", text)
	}
	if strings.Contains(text, "Diskon") {
		t.Fatalf("zero discount must not print:\n%s", text)
	}
}

func TestBuildWrapsTextInEscpos(t *testing.T) {
	built := Build(sampleRecord(), domain.ShopSettings{ShopName: "Kedai Test"})

	raw, err := base64.StdEncoding.DecodeString(built.EscposBase64)
	if err != nil {
		t.Fatalf("decode escpos: %v", err)
	}
	if raw[0] != 0x1b || raw[1] != 0x40 {
		t.Fatalf("missing init sequence: % x", raw[:2])
	}
	tail := raw[len(raw)-4:]
	if tail[0] != 0x1d || tail[1] != 0x56 {
		t.Fatalf("missing cut sequence: % x", tail)
	}
	if !strings.Contains(string(raw), "sale-abc") {
		t.Fatal("escpos body does not carry the receipt text")
	}
	if built.FileName != "receipt-sale-abc.bin" {
		t.Fatalf("file name = %q", built.FileName)
	}
}
