package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobKind selects what the worker does with an invoice.
type JobKind string

const (
	// JobRender asks the worker to produce the invoice document.
	JobRender JobKind = "render"
	// JobExport asks the worker to append the paid invoice to the
	// ledger sheet.
	JobExport JobKind = "export"
)

// InvoiceJobMessage carries only the invoice id; the worker fetches the
// current row from the database, so a stale message can never write
// stale data.
type InvoiceJobMessage struct {
	Kind      JobKind   `json:"kind"`
	InvoiceID int64     `json:"invoice_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceJobMessage(kind JobKind, invoiceID int64) *InvoiceJobMessage {
	return &InvoiceJobMessage{
		Kind:      kind,
		InvoiceID: invoiceID,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceJobMessageFromJSON(data []byte) (*InvoiceJobMessage, error) {
	var msg InvoiceJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind != JobRender && msg.Kind != JobExport {
		return nil, fmt.Errorf("unknown job kind %q", msg.Kind)
	}
	if msg.InvoiceID <= 0 {
		return nil, fmt.Errorf("invalid invoice id %d", msg.InvoiceID)
	}
	return &msg, nil
}
