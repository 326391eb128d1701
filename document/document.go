package document

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects between invoice and receipt presentation.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindReceipt Kind = "receipt"
)

// Title returns the heading shown on the document.
func (k Kind) Title() string {
	if k == KindReceipt {
		return "RECEIPT"
	}
	return "INVOICE"
}

// DateLabel returns the label used next to the issue date.
func (k Kind) DateLabel() string {
	if k == KindReceipt {
		return "Date:"
	}
	return "Invoice Date:"
}

// ShowsDueDate reports whether the due date is part of the document.
func (k Kind) ShowsDueDate() bool {
	return k != KindReceipt
}

// Image is owned binary image data.
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type,omitempty"`
}

// Issuer is the party issuing the document.
type Issuer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Logo    *Image `json:"logo,omitempty"`
}

// Recipient is the billed party.
type Recipient struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// LineItem is a single billed line.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Amount returns quantity times unit price.
func (i LineItem) Amount() float64 {
	return i.Quantity * i.UnitPrice
}

// Document is the editable invoice or receipt.
type Document struct {
	Kind           Kind       `json:"kind"`
	Issuer         Issuer     `json:"issuer"`
	Recipient      Recipient  `json:"recipient"`
	Number         string     `json:"number"`
	IssueDate      string     `json:"issue_date"`
	DueDate        string     `json:"due_date"`
	Items          []LineItem `json:"items"`
	TaxRatePercent float64    `json:"tax_rate_percent"`
	Notes          string     `json:"notes,omitempty"`
	CurrencySymbol string     `json:"currency_symbol"`
}

// Totals holds the derived amounts of a document.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

const dateLayout = "2006-01-02"

// DefaultDueDays is the offset between issue and due date for new documents.
const DefaultDueDays = 30

// New returns a document populated with editor defaults.
func New(now time.Time) Document {
	return Document{
		Kind: KindInvoice,
		Issuer: Issuer{
			Name:    "Your Company",
			Address: "123 Business Street\nCity, State 12345",
			Phone:   "(555) 123-4567",
		},
		Recipient: Recipient{
			Name:    "Client Company",
			Address: "456 Client Avenue\nCity, State 67890",
		},
		Number:         "INV-001",
		IssueDate:      now.Format(dateLayout),
		DueDate:        now.AddDate(0, 0, DefaultDueDays).Format(dateLayout),
		Items:          []LineItem{NewLineItem()},
		Notes:          "Thank you for your business!",
		CurrencySymbol: CurrencySymbol("NGN"),
	}
}

// NewLineItem returns an item with quantity 1, price 0 and a fresh id.
func NewLineItem() LineItem {
	return LineItem{
		ID:       uuid.NewString(),
		Quantity: 1,
	}
}

// Totals recomputes subtotal, tax and total from the current items.
func (d Document) Totals() Totals {
	subtotal := 0.0
	for _, item := range d.Items {
		subtotal += item.Amount()
	}
	tax := subtotal * d.TaxRatePercent / 100
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal + tax,
	}
}

// Clone returns a deep copy that shares no mutable state with d.
func (d Document) Clone() Document {
	out := d
	if d.Items != nil {
		out.Items = make([]LineItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	if d.Issuer.Logo != nil {
		logo := *d.Issuer.Logo
		logo.Data = append([]byte(nil), d.Issuer.Logo.Data...)
		out.Issuer.Logo = &logo
	}
	return out
}
