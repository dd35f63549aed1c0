package catalog

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestToQdrantFilter(t *testing.T) {
	t.Parallel()

	if got := toQdrantFilter(Filter{}); got != nil {
		t.Fatalf("empty filter should convert to nil, got %v", got)
	}

	f := Filter{Must: []Condition{
		Exact(FieldColor, "red"),
		Text(FieldCountry, "Ital"),
		Exact(FieldAcidity, "semi-dry"),
		Range(FieldPrice, ptr(500), ptr(2000)),
	}}
	got := toQdrantFilter(f)
	if len(got.GetMust()) != 4 {
		t.Fatalf("expected 4 must conditions, got %d", len(got.GetMust()))
	}

	color := got.GetMust()[0].GetField()
	if color.GetKey() != FieldColor || color.GetMatch().GetKeyword() != "red" {
		t.Errorf("color condition = %v", color)
	}

	country := got.GetMust()[1].GetField()
	if country.GetKey() != FieldCountry || country.GetMatch().GetText() != "Ital" {
		t.Errorf("country condition should be a text match, got %v", country)
	}

	acidity := got.GetMust()[2].GetField()
	if acidity.GetMatch().GetKeyword() != "semi-dry" {
		t.Errorf("acidity condition = %v", acidity)
	}

	price := got.GetMust()[3].GetField()
	if price.GetKey() != FieldPrice {
		t.Fatalf("price key = %q", price.GetKey())
	}
	if price.GetRange().GetGte() != 500 || price.GetRange().GetLte() != 2000 {
		t.Errorf("price range = %v", price.GetRange())
	}
}

func TestToQdrantFilter_OpenRange(t *testing.T) {
	t.Parallel()
	got := toQdrantFilter(Filter{Must: []Condition{Range(FieldPrice, nil, ptr(2000))}})
	r := got.GetMust()[0].GetField().GetRange()
	if r.Gte != nil {
		t.Errorf("lower bound should be open, got %v", *r.Gte)
	}
	if r.GetLte() != 2000 {
		t.Errorf("upper bound = %v, want 2000", r.GetLte())
	}
}

func TestWineFromPayload(t *testing.T) {
	t.Parallel()

	payload := map[string]*qdrant.Value{
		FieldName:        qdrant.NewValueString("Barolo"),
		FieldCountry:     qdrant.NewValueString("Италия"),
		FieldColor:       qdrant.NewValueString("red"),
		FieldPrice:       qdrant.NewValueDouble(1500),
		FieldVolume:      qdrant.NewValueInt(750),
		FieldDescription: qdrant.NewValueString("Танинное"),
	}
	got := wineFromPayload(payload)
	want := Wine{
		Name:        "Barolo",
		Country:     "Италия",
		Color:       "red",
		Acidity:     "",
		Price:       "1500",
		Volume:      "750",
		Description: "Танинное",
	}
	if got != want {
		t.Errorf("wineFromPayload() = %+v, want %+v", got, want)
	}
}

func TestWineFromPayload_Empty(t *testing.T) {
	t.Parallel()
	if got := wineFromPayload(nil); got != (Wine{}) {
		t.Errorf("nil payload should decode to zero Wine, got %+v", got)
	}
}

func TestValueText_FractionalPrice(t *testing.T) {
	t.Parallel()
	if got := valueText(qdrant.NewValueDouble(999.9)); got != "999.9" {
		t.Errorf("valueText = %q, want 999.9", got)
	}
}

func TestHybridRequest(t *testing.T) {
	t.Parallel()

	req := hybridRequest("wines", HybridQuery{Text: "лёгкое белое", Dense: []float32{0.1, 0.2}, Limit: 7})

	if req.GetCollectionName() != "wines" {
		t.Errorf("collection = %q", req.GetCollectionName())
	}
	if req.GetLimit() != 7 {
		t.Errorf("limit = %d, want 7", req.GetLimit())
	}
	if req.GetQuery().GetFusion() != qdrant.Fusion_RRF {
		t.Errorf("expected RRF fusion, got %v", req.GetQuery())
	}
	if !req.GetWithPayload().GetEnable() {
		t.Error("payload should be requested")
	}

	pre := req.GetPrefetch()
	if len(pre) != 2 {
		t.Fatalf("expected 2 prefetches, got %d", len(pre))
	}
	if pre[0].GetUsing() != DenseVector {
		t.Errorf("prefetch[0] using = %q", pre[0].GetUsing())
	}
	if pre[1].GetUsing() != SparseVector {
		t.Errorf("prefetch[1] using = %q", pre[1].GetUsing())
	}
	doc := pre[1].GetQuery().GetNearest().GetDocument()
	if doc.GetText() != "лёгкое белое" || doc.GetModel() != BM25Model {
		t.Errorf("bm25 document = %v", doc)
	}
}

func TestPointPayload(t *testing.T) {
	t.Parallel()

	price := 1200.0
	p := Point{
		ID:          "00000000-0000-0000-0000-000000000001",
		Wine:        Wine{Name: "Riesling", Color: "white", Price: "1200", Description: "Минеральное"},
		PriceNumber: &price,
	}
	got := pointPayload(p)
	if got[FieldPrice] != 1200.0 {
		t.Errorf("price should be stored as a number, got %#v", got[FieldPrice])
	}
	if _, ok := got[FieldCountry]; ok {
		t.Error("empty country should be omitted")
	}
	if got[FieldDescription] != "Минеральное" {
		t.Errorf("description = %#v", got[FieldDescription])
	}
}
