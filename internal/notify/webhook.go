package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kedaipos/backend/internal/domain"
)

// OrderSummary is the webhook payload. pay_method, items and total are the
// required fields of the contract; everything else is best-effort context.
type OrderSummary struct {
	EventID       string        `json:"event_id"`
	OrderID       string        `json:"order_id"`
	Outlet        string        `json:"outlet"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	Address       string        `json:"address,omitempty"`
	DistanceKm    float64       `json:"distance_km,omitempty"`
	PayMethod     string        `json:"pay_method"`
	Items         []SummaryItem `json:"items"`
	Subtotal      int64         `json:"subtotal"`
	Shipping      int64         `json:"shipping"`
	Total         int64         `json:"total"`
	TimeISO       string        `json:"time_iso"`
}

type SummaryItem struct {
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Price int64  `json:"price"`
}

// Webhook forwards committed order summaries to a chat-notification endpoint.
// It is strictly best-effort: any failure is logged and swallowed, and the
// commit flow never waits for or reacts to the outcome.
type Webhook struct {
	url    string
	outlet string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhook(url string, outlet string, timeout time.Duration, log zerolog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    url,
		outlet: outlet,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// OrderCommitted posts the summary for one frozen SaleRecord. Callers fire it
// from a goroutine; the returned error exists for tests only.
func (w *Webhook) OrderCommitted(ctx context.Context, record domain.SaleRecord) error {
	if !w.Enabled() {
		return nil
	}

	summary := OrderSummary{
		EventID:       uuid.NewString(),
		OrderID:       record.ID,
		Outlet:        w.outlet,
		CustomerName:  record.Customer.Name,
		CustomerPhone: record.Customer.Phone,
		Address:       record.Customer.Address,
		DistanceKm:    record.Customer.DistanceKm,
		PayMethod:     record.PayMethod,
		Items:         make([]SummaryItem, 0, len(record.Lines)),
		Subtotal:      record.Subtotal,
		Shipping:      0,
		Total:         record.Total,
		TimeISO:       record.CreatedAt.Format(time.RFC3339),
	}
	for _, line := range record.Lines {
		summary.Items = append(summary.Items, SummaryItem{
			Name:  line.DisplayName,
			Qty:   line.Quantity,
			Price: line.UnitPrice,
		})
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		w.log.Warn().Err(err).Str("order_id", record.ID).Msg("notification payload marshal failed")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		w.log.Warn().Err(err).Str("order_id", record.ID).Msg("notification request build failed")
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn().Err(err).Str("order_id", record.ID).Msg("notification delivery failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
		w.log.Warn().Err(err).Str("order_id", record.ID).Msg("notification rejected")
		return err
	}
	return nil
}
