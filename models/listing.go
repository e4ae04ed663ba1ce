package models

import (
	"errors"
	"time"
)

var ErrReturnBeforePickup = errors.New("return must be after pickup")

// ListingRequest is one search for a location and rental window.
type ListingRequest struct {
	Location         string    `json:"location"`
	LocationCode     string    `json:"location_code"`
	Pickup           time.Time `json:"pickup"`
	Return           time.Time `json:"return"`
	Language         string    `json:"lang"`
	Currency         string    `json:"currency"`
	SupplierPriority string    `json:"supplier_priority,omitempty"`
}

func (r ListingRequest) Validate() error {
	if !r.Return.After(r.Pickup) {
		return ErrReturnBeforePickup
	}
	return nil
}

// Days is the rental length in whole days, never less than one.
func (r ListingRequest) Days() int {
	d := int(r.Return.Sub(r.Pickup).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

type RawListing struct {
	SupplierCode string `json:"supplier_code,omitempty"`
	Supplier     string `json:"supplier"`
	Car          string `json:"car"`
	PriceText    string `json:"price"`
	Transmission string `json:"transmission"`
	Photo        string `json:"photo"`
	Link         string `json:"link"`

	// Upstream context carried to the classifier as explicit input.
	GroupCode     string `json:"category_code,omitempty"`
	CategoryLabel string `json:"category_label,omitempty"`
}

// Named reports whether the row identifies a vehicle, as opposed to a
// provider summary row that only has a price.
func (l RawListing) Named() bool {
	return l.Car != ""
}

type ClassifiedListing struct {
	RawListing
	Category  string `json:"category"`
	Automatic bool   `json:"automatic"`
}

// NormalizedListing is the externally visible row.
type NormalizedListing struct {
	ClassifiedListing
	PriceNum          *float64 `json:"price_num"`
	Currency          string   `json:"currency"`
	OriginalPrice     *float64 `json:"original_price,omitempty"`
	OriginalPriceText string   `json:"original_price_text,omitempty"`
}

func (l NormalizedListing) HasPrice() bool {
	return l.PriceNum != nil
}

type FXRate struct {
	Pair      string    `json:"pair"`
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}
