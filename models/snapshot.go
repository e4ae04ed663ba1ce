package models

import "time"

// PriceSnapshot is one append-only price observation.
type PriceSnapshot struct {
	ID         int64     `json:"id" db:"id"`
	TS         time.Time `json:"ts" db:"ts"`
	Location   string    `json:"location" db:"location"`
	PickupDate string    `json:"pickup_date" db:"pickup_date"`
	PickupTime string    `json:"pickup_time" db:"pickup_time"`
	Days       int       `json:"days" db:"days"`
	Supplier   string    `json:"supplier" db:"supplier"`
	Car        string    `json:"car" db:"car"`
	PriceText  string    `json:"price_text" db:"price_text"`
	PriceNum   *float64  `json:"price_num" db:"price_num"`
	Currency   string    `json:"currency" db:"currency"`
	Link       string    `json:"link" db:"link"`
}

// SnapshotKey identifies the search a batch of snapshots belongs to.
type SnapshotKey struct {
	Location string
	Pickup   time.Time
	Days     int
}

func (k SnapshotKey) PickupDate() string { return k.Pickup.Format("2006-01-02") }
func (k SnapshotKey) PickupTime() string { return k.Pickup.Format("15:04") }

// Snapshots flattens a batch of listings into rows stamped with ts. Each row
// keeps the currency its price is expressed in; fallbackCurrency only labels
// rows that carry none.
func Snapshots(key SnapshotKey, fallbackCurrency string, items []NormalizedListing, ts time.Time) []PriceSnapshot {
	out := make([]PriceSnapshot, 0, len(items))
	for _, it := range items {
		cur := it.Currency
		if cur == "" {
			cur = fallbackCurrency
		}
		out = append(out, PriceSnapshot{
			TS:         ts,
			Location:   key.Location,
			PickupDate: key.PickupDate(),
			PickupTime: key.PickupTime(),
			Days:       key.Days,
			Supplier:   it.Supplier,
			Car:        it.Car,
			PriceText:  it.PriceText,
			PriceNum:   it.PriceNum,
			Currency:   cur,
			Link:       it.Link,
		})
	}
	return out
}
