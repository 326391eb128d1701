package document

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// ItemRow is a line item formatted for display.
type ItemRow struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

// ViewModel is the display form of a document shared by every view.
type ViewModel struct {
	Title          string
	Number         string
	DateLabel      string
	IssueDate      string
	DueDate        string
	ShowDueDate    bool
	IssuerName     string
	IssuerLines    []string
	IssuerPhone    string
	LogoSrc        string
	HasLogo        bool
	Recipient      string
	RecipientLines []string
	Items          []ItemRow
	Subtotal       string
	TaxLabel       string
	TaxAmount      string
	Total          string
	Notes          string
	NoteLines      []string
}

// View formats d for rendering. Totals are recomputed.
func (d Document) View() ViewModel {
	totals := d.Totals()
	vm := ViewModel{
		Title:          d.Kind.Title(),
		Number:         d.Number,
		DateLabel:      d.Kind.DateLabel(),
		IssueDate:      d.IssueDate,
		DueDate:        d.DueDate,
		ShowDueDate:    d.Kind.ShowsDueDate() && d.DueDate != "",
		IssuerName:     d.Issuer.Name,
		IssuerLines:    splitLines(d.Issuer.Address),
		IssuerPhone:    d.Issuer.Phone,
		Recipient:      d.Recipient.Name,
		RecipientLines: splitLines(d.Recipient.Address),
		Items:          make([]ItemRow, 0, len(d.Items)),
		Subtotal:       d.Money(totals.Subtotal),
		TaxLabel:       "Tax (" + strconv.FormatFloat(d.TaxRatePercent, 'f', -1, 64) + "%):",
		TaxAmount:      d.Money(totals.TaxAmount),
		Total:          d.Money(totals.Total),
		Notes:          strings.TrimSpace(d.Notes),
		NoteLines:      splitLines(d.Notes),
	}
	if logo := d.Issuer.Logo; logo != nil && len(logo.Data) > 0 {
		vm.HasLogo = true
		vm.LogoSrc = "data:" + logo.ContentType + ";base64," + base64.StdEncoding.EncodeToString(logo.Data)
	}
	for _, item := range d.Items {
		vm.Items = append(vm.Items, ItemRow{
			Description: item.Description,
			Quantity:    strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			UnitPrice:   d.Money(item.UnitPrice),
			Amount:      d.Money(item.Amount()),
		})
	}
	return vm
}

func splitLines(s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
