package document

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := New(now)

	if doc.Kind != KindInvoice {
		t.Fatalf("expected invoice kind, got %q", doc.Kind)
	}
	if doc.Number != "INV-001" {
		t.Fatalf("unexpected number %q", doc.Number)
	}
	if doc.IssueDate != "2026-03-01" || doc.DueDate != "2026-03-31" {
		t.Fatalf("unexpected dates %q %q", doc.IssueDate, doc.DueDate)
	}
	if len(doc.Items) != 1 || doc.Items[0].Quantity != 1 || doc.Items[0].UnitPrice != 0 {
		t.Fatalf("unexpected default items %+v", doc.Items)
	}
	if doc.CurrencySymbol != "₦" {
		t.Fatalf("unexpected currency symbol %q", doc.CurrencySymbol)
	}
}

func TestTotals(t *testing.T) {
	doc := Document{
		Items: []LineItem{
			{ID: "a", Quantity: 2, UnitPrice: 25},
		},
		TaxRatePercent: 10,
	}
	totals := doc.Totals()
	if totals.Subtotal != 50 || totals.TaxAmount != 5 || totals.Total != 55 {
		t.Fatalf("unexpected totals %+v", totals)
	}

	doc.Items = append(doc.Items, LineItem{ID: "b", Quantity: 3, UnitPrice: 10})
	totals = doc.Totals()
	if totals.Subtotal != 80 || totals.Total != 88 {
		t.Fatalf("totals not recomputed: %+v", totals)
	}
}

func TestTotalsEmpty(t *testing.T) {
	totals := Document{TaxRatePercent: 20}.Totals()
	if totals != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestItemEditing(t *testing.T) {
	doc := Document{}
	first := doc.AddItem()
	second := doc.AddItem()
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected unique ids, got %q and %q", first.ID, second.ID)
	}

	if err := doc.UpdateItem(second.ID, func(item *LineItem) {
		item.Description = "Design"
		item.Quantity = 4
		item.UnitPrice = 12.5
		item.ID = "hijack"
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := doc.Item(second.ID)
	if !ok || got.Amount() != 50 || got.Description != "Design" {
		t.Fatalf("unexpected item %+v", got)
	}

	if err := doc.UpdateItem("missing", nil); err == nil {
		t.Fatalf("expected not found error")
	}

	if !doc.RemoveItem(first.ID) {
		t.Fatalf("expected removal")
	}
	if doc.RemoveItem(first.ID) {
		t.Fatalf("expected second removal to fail")
	}
	if len(doc.Items) != 1 || doc.Items[0].ID != second.ID {
		t.Fatalf("unexpected items after removal %+v", doc.Items)
	}

	third := doc.AddItem()
	if third.ID == first.ID {
		t.Fatalf("ids must not be reused")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := New(time.Now())
	doc.SetLogo([]byte{0x89, 'P', 'N', 'G'}, "image/png")

	clone := doc.Clone()
	doc.Items[0].Description = "changed"
	doc.AddItem()
	doc.Issuer.Logo.Data[0] = 0

	if clone.Items[0].Description == "changed" || len(clone.Items) != 1 {
		t.Fatalf("clone shares items: %+v", clone.Items)
	}
	if clone.Issuer.Logo.Data[0] != 0x89 {
		t.Fatalf("clone shares logo bytes")
	}
}

func TestValidate(t *testing.T) {
	doc := New(time.Now())
	if err := doc.Validate(); err != nil {
		t.Fatalf("expected default document to validate: %v", err)
	}

	bad := doc.Clone()
	bad.Items[0].Quantity = -1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected negative quantity to fail")
	}

	bad = doc.Clone()
	bad.TaxRatePercent = math.NaN()
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected NaN tax to fail")
	}

	bad = doc.Clone()
	bad.Items[0].ID = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected empty item id to fail")
	}

	bad = doc.Clone()
	bad.Items = append(bad.Items, bad.Items[0])
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate item id") {
		t.Fatalf("expected duplicate item ids to fail, got %v", err)
	}

	bad = doc.Clone()
	bad.Kind = "quote"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestKindLabels(t *testing.T) {
	if KindReceipt.Title() != "RECEIPT" || KindReceipt.DateLabel() != "Date:" || KindReceipt.ShowsDueDate() {
		t.Fatalf("unexpected receipt labels")
	}
	if KindInvoice.Title() != "INVOICE" || KindInvoice.DateLabel() != "Invoice Date:" || !KindInvoice.ShowsDueDate() {
		t.Fatalf("unexpected invoice labels")
	}
}
