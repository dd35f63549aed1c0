package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/54b3r/sommelier-go/internal/catalog"
)

// fakeStore records every upserted point.
type fakeStore struct {
	mu      sync.Mutex
	exists  bool
	dim     uint64
	points  []catalog.Point
	upserts int
	err     error
}

func (f *fakeStore) EnsureCollection(_ context.Context, dim uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dim = dim
	if f.exists {
		return false, nil
	}
	f.exists = true
	return true, nil
}

func (f *fakeStore) Upsert(_ context.Context, points []catalog.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts++
	f.points = append(f.points, points...)
	return nil
}

// fakeEmbedder returns a vector of dim whose first element is the text length.
type fakeEmbedder struct {
	dim   int
	err   error
	mu    sync.Mutex
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.texts = append(f.texts, texts...)
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(len(t))
	}
	return out, nil
}

const sampleJSON = `[
  {"Name": "Chablis Premier Cru", "Country": "France", "Color": "White", "Acidity": "Сухое", "Price": 2490, "Volume": 0.75, "text": "Минеральное, к устрицам."},
  {"Name": "Rioja Reserva", "Country": "Spain", "Color": "red", "Acidity": "Сухое", "Price": "1 500,00", "Volume": "0.75", "Description": "Вишня и ваниль."},
  {"Name": "", "Country": "Italy"},
  {"Name": "Mystery", "Price": null}
]`

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	recs, err := LoadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("want 4 records, got %d", len(recs))
	}

	w := recs[0].Wine()
	if w.Color != "white" {
		t.Errorf("Color = %q, want lower-cased", w.Color)
	}
	if w.Price != "2490" || w.Volume != "0.75" || w.Description != "Минеральное, к устрицам." {
		t.Errorf("unexpected wine: %+v", w)
	}
	if p := recs[0].PriceNumber(); p == nil || *p != 2490 {
		t.Errorf("PriceNumber = %v, want 2490", p)
	}

	w = recs[1].Wine()
	if w.Price != "1500" {
		t.Errorf("string price not normalised: %q", w.Price)
	}
	if w.Description != "Вишня и ваниль." {
		t.Errorf("Description fallback failed: %q", w.Description)
	}
	if recs[3].PriceNumber() != nil || recs[3].Wine().Price != "" {
		t.Error("null price must stay empty")
	}
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	const csvData = "\ufeffName,Country,Color,Acidity,Price,Volume,text,Extra\n" +
		"Barolo,Italy,Red,Сухое,3200,0.75,\"Танины, роза\",x\n" +
		"Cheap,Chile,white,Сухое,not-a-price,1.5,,\n"

	recs, err := LoadCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	w := recs[0].Wine()
	if w.Name != "Barolo" || w.Color != "red" || w.Description != "Танины, роза" || w.Price != "3200" {
		t.Errorf("unexpected first wine: %+v", w)
	}
	if recs[1].PriceNumber() != nil || recs[1].Wine().Price != "not-a-price" {
		t.Errorf("unparseable price must be kept as text only: %+v", recs[1].Wine())
	}
}

func TestLoadCSV_RequiresNameColumn(t *testing.T) {
	t.Parallel()
	if _, err := LoadCSV(strings.NewReader("Country,Color\nFrance,red\n")); err == nil {
		t.Fatal("expected error for missing Name column")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "wines.json")
	if err := os.WriteFile(jsonPath, []byte(sampleJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	recs, err := LoadFile(jsonPath)
	if err != nil || len(recs) != 4 {
		t.Fatalf("LoadFile(json) = %d records, %v", len(recs), err)
	}

	txtPath := filepath.Join(dir, "wines.txt")
	if err := os.WriteFile(txtPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(txtPath); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{dim: 4}
	store := &fakeStore{}
	if _, err := NewPipeline(nil, store, &Config{Dimensions: 4}); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(emb, nil, &Config{Dimensions: 4}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewPipeline(emb, store, &Config{}); err == nil {
		t.Error("expected error for zero dimensions")
	}
	p, err := NewPipeline(emb, store, &Config{Dimensions: 4})
	if err != nil {
		t.Fatal(err)
	}
	if p.cfg.BatchSize != 32 || p.cfg.Concurrency != 4 {
		t.Errorf("defaults not applied: %+v", p.cfg)
	}
}

func TestIngest(t *testing.T) {
	t.Parallel()

	recs, err := LoadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	emb := &fakeEmbedder{dim: 4}
	store := &fakeStore{}
	p, err := NewPipeline(emb, store, &Config{Dimensions: 4, BatchSize: 1, Concurrency: 2})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var msgs []string
	stats, err := p.Ingest(context.Background(), recs, func(m string) {
		mu.Lock()
		msgs = append(msgs, m)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !stats.Created || stats.Upserted != 3 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if store.dim != 4 || store.upserts != 3 {
		t.Errorf("store dim=%d upserts=%d", store.dim, store.upserts)
	}
	if len(msgs) != 4 {
		t.Errorf("want 4 progress messages, got %v", msgs)
	}

	sort.Strings(emb.texts)
	want := []string{"Mystery", "Вишня и ваниль.", "Минеральное, к устрицам."}
	sort.Strings(want)
	if strings.Join(emb.texts, "|") != strings.Join(want, "|") {
		t.Errorf("embedded %q, want %q", emb.texts, want)
	}

	for _, pt := range store.points {
		if pt.ID != PointID(pt.Wine) {
			t.Errorf("point %q has non-deterministic ID", pt.Wine.Name)
		}
		if pt.Wine.Name == "Rioja Reserva" && (pt.PriceNumber == nil || *pt.PriceNumber != 1500) {
			t.Errorf("Rioja price number = %v", pt.PriceNumber)
		}
	}
}

func TestIngest_Idempotent(t *testing.T) {
	t.Parallel()

	recs, _ := LoadJSON(strings.NewReader(sampleJSON))
	store := &fakeStore{}
	p, _ := NewPipeline(&fakeEmbedder{dim: 2}, store, &Config{Dimensions: 2})

	first, err := p.Ingest(context.Background(), recs, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Ingest(context.Background(), recs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Created || second.Created {
		t.Errorf("Created: first=%v second=%v", first.Created, second.Created)
	}

	ids := map[string]int{}
	for _, pt := range store.points {
		ids[pt.ID]++
	}
	if len(ids) != 3 {
		t.Errorf("want 3 distinct IDs across runs, got %d", len(ids))
	}
}

func TestIngest_Errors(t *testing.T) {
	t.Parallel()

	recs, _ := LoadJSON(strings.NewReader(sampleJSON))
	boom := errors.New("boom")

	cases := []struct {
		name  string
		emb   *fakeEmbedder
		store *fakeStore
	}{
		{"embed failure", &fakeEmbedder{dim: 4, err: boom}, &fakeStore{}},
		{"upsert failure", &fakeEmbedder{dim: 4}, &fakeStore{err: boom}},
		{"dimension mismatch", &fakeEmbedder{dim: 3}, &fakeStore{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPipeline(tc.emb, tc.store, &Config{Dimensions: 4})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := p.Ingest(context.Background(), recs, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPointID(t *testing.T) {
	t.Parallel()

	a := PointID(catalog.Wine{Name: "Barolo", Country: "Italy", Volume: "0.75"})
	b := PointID(catalog.Wine{Name: "BAROLO", Country: "italy", Volume: "0.75", Price: "999"})
	c := PointID(catalog.Wine{Name: "Barolo", Country: "Italy", Volume: "1.5"})
	if a != b {
		t.Error("ID must ignore case and non-identity fields")
	}
	if a == c {
		t.Error("different volumes must yield different IDs")
	}
	if len(a) != 36 {
		t.Errorf("not a UUID: %q", a)
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "2490", want: 2490, ok: true},
		{in: "0.75", want: 0.75, ok: true},
		{in: "12,5", want: 12.5, ok: true},
		{in: "1,500", want: 1500, ok: true},
		{in: "1,500.00", want: 1500, ok: true},
		{in: "1.500,00", want: 1500, ok: true},
		{in: "1 500,00", want: 1500, ok: true},
		{in: "1 500", want: 1500, ok: true},
		{in: "1.500.000", want: 1500000, ok: true},
		{in: "1,234,567.5", want: 1234567.5, ok: true},
		{in: ",5", want: 0.5, ok: true},
		{in: "1,5000"},
		{in: "1,500,00"},
		{in: "1.500,000"},
		{in: "12,50,000"},
		{in: "5."},
		{in: "NaN"},
		{in: "около 900"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got := parsePrice(tc.in)
			if !tc.ok {
				if got.value != nil {
					t.Fatalf("parsePrice(%q) = %v, want no number", tc.in, *got.value)
				}
				if got.text != tc.in {
					t.Errorf("text = %q, want the input kept as is", got.text)
				}
				return
			}
			if got.value == nil {
				t.Fatalf("parsePrice(%q): no number, want %v", tc.in, tc.want)
			}
			if *got.value != tc.want {
				t.Errorf("parsePrice(%q) = %v, want %v", tc.in, *got.value, tc.want)
			}
		})
	}
}
