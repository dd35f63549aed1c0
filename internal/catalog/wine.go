// Package catalog defines the wine catalog data model and the store
// abstraction the retrieval layer queries, together with its Qdrant
// implementation.
package catalog

import (
	"strconv"
	"strings"
)

// Payload field names as stored on each catalog point.
const (
	FieldName        = "Name"
	FieldCountry     = "Country"
	FieldColor       = "Color"
	FieldAcidity     = "Acidity"
	FieldPrice       = "Price"
	FieldVolume      = "Volume"
	FieldDescription = "text"
)

// Wine is a single catalog record as returned by the store. Every field is
// kept as its rendered text; a field absent from the payload is "".
type Wine struct {
	// Name is the display name of the wine.
	Name string

	// Country is the country of origin.
	Country string

	// Color is the lower-case colour, e.g. "red" or "white".
	Color string

	// Acidity is one of dry, sweet, semi-dry, semi-sweet.
	Acidity string

	// Price is the numeric price rendered as text, currency implicit.
	Price string

	// Volume is the bottle volume as stored.
	Volume string

	// Description is the free-text description, stored under the "text" key.
	Description string
}

// Field returns the wine's value for a payload field name, or "" when the
// name is unknown.
func (w Wine) Field(name string) string {
	switch name {
	case FieldName:
		return w.Name
	case FieldCountry:
		return w.Country
	case FieldColor:
		return w.Color
	case FieldAcidity:
		return w.Acidity
	case FieldPrice:
		return w.Price
	case FieldVolume:
		return w.Volume
	case FieldDescription:
		return w.Description
	}
	return ""
}

// PriceValue parses Price. ok is false when the price is missing or not a
// number.
func (w Wine) PriceValue() (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(w.Price), 64)
	if err != nil {
		return 0, false
	}
	return p, true
}
