package document

import (
	"fmt"

	errorslib "github.com/goliatone/go-errors"
)

// AddItem appends a default line item and returns it.
func (d *Document) AddItem() LineItem {
	item := NewLineItem()
	d.Items = append(d.Items, item)
	return item
}

// RemoveItem deletes the item with id. It reports whether an item was removed.
func (d *Document) RemoveItem(id string) bool {
	for i, item := range d.Items {
		if item.ID == id {
			d.Items = append(d.Items[:i], d.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Item returns the item with id.
func (d Document) Item(id string) (LineItem, bool) {
	for _, item := range d.Items {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

// UpdateItem applies fn to the item with id. The id itself cannot be changed.
func (d *Document) UpdateItem(id string, fn func(*LineItem)) error {
	for i := range d.Items {
		if d.Items[i].ID != id {
			continue
		}
		if fn != nil {
			fn(&d.Items[i])
		}
		d.Items[i].ID = id
		return nil
	}
	return errorslib.New(fmt.Sprintf("line item %q not found", id), errorslib.CategoryNotFound).
		WithTextCode("not_found")
}
