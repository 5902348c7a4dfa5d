package inventory

import (
	"github.com/google/uuid"
)

// ItemStatus is the display status label of an item.
//
// For single-copy items the label is authoritative. For multi-copy items it
// is only a display hint: true availability must always be recomputed from
// live obligation counts, never read off the label alone.
type ItemStatus string

const (
	StatusInStock     ItemStatus = "instock"
	StatusOutOfStock  ItemStatus = "outofstock"
	StatusReserved    ItemStatus = "reserved"
	StatusOnBackorder ItemStatus = "onbackorder"
	StatusLost        ItemStatus = "lost"
	StatusRepairing   ItemStatus = "repairing"
	StatusForSale     ItemStatus = "forsale"
	StatusDeleted     ItemStatus = "deleted"
)

// IsValid reports whether the status is one of the known labels.
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusInStock, StatusOutOfStock, StatusReserved, StatusOnBackorder,
		StatusLost, StatusRepairing, StatusForSale, StatusDeleted:
		return true
	default:
		return false
	}
}

// IsManual reports whether the status is owned by staff-driven edits.
// The coordinator never overwrites a manual status when releasing a hold.
func (s ItemStatus) IsManual() bool {
	switch s {
	case StatusOnBackorder, StatusLost, StatusRepairing, StatusForSale, StatusDeleted:
		return true
	default:
		return false
	}
}

// Item is the resource record: a lendable item with a fixed number of
// interchangeable physical copies and a single display status label.
type Item struct {
	ID     uuid.UUID
	Title  string
	Copies int
	Status ItemStatus
}

// BuildItem is a factory method for Item.
//
// New items start in stock. Returns ErrInvalidCopyCount if copies is below one.
func BuildItem(id uuid.UUID, title string, copies int) (Item, error) {
	if copies < 1 {
		return Item{}, ErrInvalidCopyCount
	}

	return Item{
		ID:     id,
		Title:  title,
		Copies: copies,
		Status: StatusInStock,
	}, nil
}
