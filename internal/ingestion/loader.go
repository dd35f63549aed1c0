package ingestion

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/54b3r/sommelier-go/internal/catalog"
)

// Record is one wine as it appears in a catalog file. JSON keys and CSV
// headers match the payload field names; the description may be given as
// "text" or "Description".
type Record struct {
	Name        string    `json:"Name"`
	Country     string    `json:"Country"`
	Color       string    `json:"Color"`
	Acidity     string    `json:"Acidity"`
	Price       flexPrice `json:"Price"`
	Volume      flexText  `json:"Volume"`
	Text        string    `json:"text"`
	Description string    `json:"Description"`
}

// Wine converts the record into its catalog form. Colour is lower-cased so
// exact colour filters match regardless of how the file spells it.
func (r Record) Wine() catalog.Wine {
	desc := r.Text
	if desc == "" {
		desc = r.Description
	}
	return catalog.Wine{
		Name:        strings.TrimSpace(r.Name),
		Country:     strings.TrimSpace(r.Country),
		Color:       strings.ToLower(strings.TrimSpace(r.Color)),
		Acidity:     strings.TrimSpace(r.Acidity),
		Price:       r.Price.text,
		Volume:      strings.TrimSpace(string(r.Volume)),
		Description: strings.TrimSpace(desc),
	}
}

// PriceNumber returns the numeric price, or nil when the file had none or it
// did not parse.
func (r Record) PriceNumber() *float64 { return r.Price.value }

// flexPrice accepts a JSON number or a string such as "1 500,00".
type flexPrice struct {
	text  string
	value *float64
}

func (p *flexPrice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = parsePrice(s)
		return nil
	}
	*p = parsePrice(string(b))
	return nil
}

func parsePrice(s string) flexPrice {
	s = strings.TrimSpace(s)
	if s == "" {
		return flexPrice{}
	}
	norm, ok := normalizeNumber(s)
	if !ok {
		return flexPrice{text: s}
	}
	v, err := strconv.ParseFloat(norm, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return flexPrice{text: s}
	}
	return flexPrice{text: strconv.FormatFloat(v, 'f', -1, 64), value: &v}
}

// normalizeNumber rewrites a price written with thousand separators and a
// decimal point or comma into plain "1500.5" form. Spaces always group
// thousands. The last '.' or ',' is the decimal mark when it is a '.' not
// repeated earlier, or a ',' followed by one or two digits; any other
// separator groups thousands and must split the digits in threes.
// Inputs that fit neither reading are rejected.
func normalizeNumber(s string) (string, bool) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}

	last := strings.LastIndexAny(s, ".,")
	if last < 0 {
		return sign + s, true
	}
	sep := s[last]
	intPart, frac := s[:last], s[last+1:]

	decimal := false
	switch sep {
	case '.':
		decimal = !strings.Contains(intPart, ".")
	case ',':
		decimal = len(frac) == 1 || len(frac) == 2
	}

	if !decimal {
		digits, ok := ungroup(s, sep)
		return sign + digits, ok
	}
	if frac == "" || !allDigits(frac) || strings.IndexByte(intPart, sep) >= 0 {
		return "", false
	}
	other := byte(',')
	if sep == ',' {
		other = '.'
	}
	digits, ok := ungroup(intPart, other)
	if !ok {
		return "", false
	}
	if digits == "" {
		digits = "0"
	}
	return sign + digits + "." + frac, true
}

// ungroup strips sep from s when it splits the digits into a leading group
// of one to three and further groups of exactly three.
func ungroup(s string, sep byte) (string, bool) {
	if !strings.Contains(s, string(sep)) {
		return s, s == "" || allDigits(s)
	}
	groups := strings.Split(s, string(sep))
	for i, g := range groups {
		if !allDigits(g) || (i == 0 && len(g) > 3) || (i > 0 && len(g) != 3) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// flexText accepts a JSON string or number.
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = flexText(s)
		return nil
	}
	*t = flexText(b)
	return nil
}

// LoadFile reads a catalog from a .json (array of objects) or .csv (header
// row) file.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return LoadJSON(f)
	case ".csv":
		return LoadCSV(f)
	default:
		return nil, fmt.Errorf("ingestion: unsupported catalog format %q (want .json or .csv)", ext)
	}
}

// LoadJSON decodes a JSON array of records.
func LoadJSON(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("ingestion: decode json catalog: %w", err)
	}
	return recs, nil
}

// LoadCSV decodes a CSV catalog. Header names are matched case-insensitively
// against the payload field names; unknown columns are ignored.
func LoadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("ingestion: read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("ingestion: csv catalog has no Name column")
	}

	var recs []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingestion: csv line %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		recs = append(recs, Record{
			Name:        get("name"),
			Country:     get("country"),
			Color:       get("color"),
			Acidity:     get("acidity"),
			Price:       parsePrice(get("price")),
			Volume:      flexText(get("volume")),
			Text:        get("text"),
			Description: get("description"),
		})
	}
	return recs, nil
}
