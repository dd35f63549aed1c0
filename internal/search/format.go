package search

import (
	"strings"

	"github.com/54b3r/sommelier-go/internal/catalog"
)

// FormatWine renders one hit as
//
//	Name | Country | Color | Acidity | Price | Volume
//	 Описание: Description
func FormatWine(w catalog.Wine) string {
	var b strings.Builder
	b.WriteString(w.Name)
	b.WriteString(" | ")
	b.WriteString(w.Country)
	b.WriteString(" | ")
	b.WriteString(w.Color)
	b.WriteString(" | ")
	b.WriteString(w.Acidity)
	b.WriteString(" | ")
	b.WriteString(w.Price)
	b.WriteString(" | ")
	b.WriteString(w.Volume)
	b.WriteString(" \n Описание: ")
	b.WriteString(w.Description)
	return b.String()
}

// FormatWines renders hits separated by a blank line.
func FormatWines(wines []catalog.Wine) string {
	blocks := make([]string, len(wines))
	for i, w := range wines {
		blocks[i] = FormatWine(w)
	}
	return strings.Join(blocks, "\n\n")
}
