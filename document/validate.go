package document

import (
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	errorslib "github.com/goliatone/go-errors"
)

var finite = validation.By(func(value any) error {
	f, ok := value.(float64)
	if !ok {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("must be a finite number")
	}
	return nil
})

// Validate checks a line item's id and numeric fields.
func (i LineItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.Quantity, finite, validation.Min(0.0)),
		validation.Field(&i.UnitPrice, finite, validation.Min(0.0)),
	)
}

// uniqueItemIDs rejects two items sharing an id; edits address items by id.
var uniqueItemIDs = validation.By(func(value any) error {
	items, _ := value.([]LineItem)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
})

// Validate checks the document before it is rendered.
// An empty kind is accepted and presented as an invoice.
func (d Document) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Kind, validation.In(KindInvoice, KindReceipt)),
		validation.Field(&d.TaxRatePercent, finite, validation.Min(0.0)),
		validation.Field(&d.Items, uniqueItemIDs),
	)
	if err == nil {
		return nil
	}
	return errorslib.Wrap(err, errorslib.CategoryValidation, "invalid document: "+err.Error()).
		WithTextCode("validation")
}
