package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/sommelier-go/internal/catalog"
)

// fakeStore is an in-memory catalog.Store that records its calls.
type fakeStore struct {
	mu         sync.Mutex
	wines      []catalog.Wine
	hybridHits []catalog.Wine
	err        error
	delay      time.Duration
	scrolls    int
	hybrids    int
	lastLimit  int
	lastFilter catalog.Filter
	lastHybrid catalog.HybridQuery
}

func (f *fakeStore) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) Scroll(ctx context.Context, filter catalog.Filter, limit int) ([]catalog.Wine, error) {
	f.mu.Lock()
	f.scrolls++
	f.lastLimit = limit
	f.lastFilter = filter
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.Wine
	for _, w := range f.wines {
		if len(out) == limit {
			break
		}
		if filter.Matches(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) HybridQuery(ctx context.Context, q catalog.HybridQuery) ([]catalog.Wine, error) {
	f.mu.Lock()
	f.hybrids++
	f.lastLimit = q.Limit
	f.lastHybrid = q
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hybridHits) > q.Limit {
		return f.hybridHits[:q.Limit], nil
	}
	return f.hybridHits, nil
}

// fakeEmbedder returns a fixed vector or an error.
type fakeEmbedder struct {
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func price(v float64) *float64 { return &v }

var (
	redCheap = catalog.Wine{
		Name: "Château Rouge", Country: "France", Color: "red", Acidity: "Сухое",
		Price: "1500", Volume: "0.75", Description: "Ягодное, мягкие танины",
	}
	whiteCheap = catalog.Wine{
		Name: "Riesling Kabinett", Country: "Germany", Color: "white", Acidity: "Полусладкое",
		Price: "1200", Volume: "0.75", Description: "Цитрус и минеральность",
	}
	redPricey = catalog.Wine{
		Name: "Barolo Riserva", Country: "Italy", Color: "red", Acidity: "Сухое",
		Price: "6400", Volume: "0.75", Description: "Роза, смола, вишня",
	}
)

func TestByAttributes_NoFilterIsRejected(t *testing.T) {
	t.Parallel()
	st := &fakeStore{wines: []catalog.Wine{redCheap}}
	svc := New(st, &fakeEmbedder{}, Config{})

	for _, q := range []AttributeQuery{{}, {Limit: 10}} {
		r := svc.ByAttributes(context.Background(), q)
		assert.Equal(t, Recovered, r.Kind)
		text, err := r.Text()
		require.NoError(t, err)
		assert.Equal(t, MsgNeedFilter, text)
	}
	assert.Zero(t, st.scrolls, "store must not be queried without a filter")
}

func TestByAttributes_LimitClamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want int
	}{
		{0, 3},
		{-5, 3},
		{1, 1},
		{30, 30},
		{31, 30},
		{1000, 30},
	}
	for _, tt := range tests {
		st := &fakeStore{}
		svc := New(st, &fakeEmbedder{}, Config{})
		svc.ByAttributes(context.Background(), AttributeQuery{Color: "red", Limit: tt.in})
		assert.Equal(t, tt.want, st.lastLimit, "limit %d", tt.in)
	}
}

func TestByQuery_LimitClamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want int
	}{
		{0, 3},
		{7, 7},
		{10, 10},
		{11, 10},
		{500, 10},
	}
	for _, tt := range tests {
		st := &fakeStore{}
		svc := New(st, &fakeEmbedder{}, Config{})
		svc.ByQuery(context.Background(), "к рыбе", tt.in)
		assert.Equal(t, tt.want, st.lastLimit, "limit %d", tt.in)
	}
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	f := BuildFilter(AttributeQuery{
		Color:    "Red",
		Country:  "Fr",
		Acidity:  "Сухое",
		MinPrice: price(1000),
		MaxPrice: price(2000),
	})
	require.Len(t, f.Must, 4)

	assert.Equal(t, catalog.Exact(catalog.FieldColor, "red"), f.Must[0], "color is lower-cased exact match")
	assert.Equal(t, catalog.Text(catalog.FieldCountry, "Fr"), f.Must[1], "country is a text match")
	assert.Equal(t, catalog.Exact(catalog.FieldAcidity, "Сухое"), f.Must[2], "acidity is not normalised")
	assert.Equal(t, catalog.MatchRange, f.Must[3].Kind)
	assert.Equal(t, 1000.0, *f.Must[3].Gte)
	assert.Equal(t, 2000.0, *f.Must[3].Lte)
}

func TestBuildFilter_SinglePriceBound(t *testing.T) {
	t.Parallel()
	f := BuildFilter(AttributeQuery{MaxPrice: price(0)})
	require.Len(t, f.Must, 1)
	assert.Nil(t, f.Must[0].Gte)
	require.NotNil(t, f.Must[0].Lte)
	assert.Equal(t, 0.0, *f.Must[0].Lte, "a zero bound is still a bound")
}

func TestByAttributes_Conjunctive(t *testing.T) {
	t.Parallel()
	catalogue := []catalog.Wine{redCheap, whiteCheap, redPricey}

	tests := []struct {
		name string
		q    AttributeQuery
		want []string
	}{
		{"color only", AttributeQuery{Color: "red", Limit: 10}, []string{"Château Rouge", "Barolo Riserva"}},
		{"color and max price", AttributeQuery{Color: "red", MaxPrice: price(2000), Limit: 10}, []string{"Château Rouge"}},
		{"inclusive bounds", AttributeQuery{MinPrice: price(1200), MaxPrice: price(1500), Limit: 10}, []string{"Château Rouge", "Riesling Kabinett"}},
		{"country substring", AttributeQuery{Country: "ital", Limit: 10}, []string{"Barolo Riserva"}},
		{"acidity and country", AttributeQuery{Acidity: "Сухое", Country: "Germany", Limit: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := New(&fakeStore{wines: catalogue}, &fakeEmbedder{}, Config{})
			r := svc.ByAttributes(context.Background(), tt.q)
			var got []string
			for _, w := range r.Wines {
				got = append(got, w.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByAttributes_RedUnderPrice(t *testing.T) {
	t.Parallel()
	whiteSame := redCheap
	whiteSame.Name = "Blanc"
	whiteSame.Color = "white"
	svc := New(&fakeStore{wines: []catalog.Wine{redCheap, whiteSame}}, &fakeEmbedder{}, Config{})

	r := svc.ByAttributes(context.Background(), AttributeQuery{Color: "Red", MaxPrice: price(2000)})
	require.Equal(t, Found, r.Kind)

	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t,
		"Château Rouge | France | red | Сухое | 1500 | 0.75 \n Описание: Ягодное, мягкие танины",
		text,
	)
}

func TestByAttributes_Empty(t *testing.T) {
	t.Parallel()
	svc := New(&fakeStore{}, &fakeEmbedder{}, Config{})
	r := svc.ByAttributes(context.Background(), AttributeQuery{Color: "rosé"})
	assert.Equal(t, Empty, r.Kind)
	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, MsgNoAttrMatches, text)
}

func TestByAttributes_StoreFailureIsFatal(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection refused")
	svc := New(&fakeStore{err: boom}, &fakeEmbedder{}, Config{})

	r := svc.ByAttributes(context.Background(), AttributeQuery{Color: "red"})
	assert.Equal(t, Fatal, r.Kind)
	_, err := r.Text()
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, boom)
}

func TestByAttributes_StoreTimeoutIsFatal(t *testing.T) {
	t.Parallel()
	st := &fakeStore{delay: time.Second}
	svc := New(st, &fakeEmbedder{}, Config{StoreTimeout: 10 * time.Millisecond})

	r := svc.ByAttributes(context.Background(), AttributeQuery{Color: "red"})
	require.Equal(t, Fatal, r.Kind)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	assert.ErrorIs(t, r.Err, ErrStore)
}

func TestByQuery_EmbeddingFailureRecovers(t *testing.T) {
	t.Parallel()
	st := &fakeStore{hybridHits: []catalog.Wine{redCheap}}
	svc := New(st, &fakeEmbedder{err: errors.New("model unavailable")}, Config{})

	r := svc.ByQuery(context.Background(), "что к рыбе?", 3)
	assert.Equal(t, Recovered, r.Kind)
	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, MsgEmbeddingFailed, text)
	assert.Zero(t, st.hybrids, "store must not be queried after an embedding failure")
}

func TestByQuery_EmbeddingTimeoutRecovers(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	svc := New(st, &fakeEmbedder{delay: time.Second}, Config{EmbedTimeout: 10 * time.Millisecond})

	r := svc.ByQuery(context.Background(), "шабли", 3)
	assert.Equal(t, Recovered, r.Kind)
	assert.Equal(t, MsgEmbeddingFailed, r.Message)
	assert.Zero(t, st.hybrids)
}

func TestByQuery_Empty(t *testing.T) {
	t.Parallel()
	svc := New(&fakeStore{}, &fakeEmbedder{}, Config{})
	r := svc.ByQuery(context.Background(), "вино с Марса", 3)
	assert.Equal(t, Empty, r.Kind)
	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, MsgNoQueryMatches, text)
	assert.NotEqual(t, MsgNoAttrMatches, text)
}

func TestByQuery_Found(t *testing.T) {
	t.Parallel()
	st := &fakeStore{hybridHits: []catalog.Wine{redPricey, {Name: "Bare", Description: "Только имя"}}}
	svc := New(st, &fakeEmbedder{}, Config{})

	r := svc.ByQuery(context.Background(), "пьемонт", 5)
	require.Equal(t, Found, r.Kind)
	assert.Equal(t, "пьемонт", st.lastHybrid.Text)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, st.lastHybrid.Dense)

	text, err := r.Text()
	require.NoError(t, err)
	blocks := strings.Split(text, "\n\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "Bare |  |  |  |  |  \n Описание: Только имя", blocks[1], "missing fields render empty")
}

func TestByQuery_StoreFailureIsFatal(t *testing.T) {
	t.Parallel()
	svc := New(&fakeStore{err: errors.New("unavailable")}, &fakeEmbedder{}, Config{})
	r := svc.ByQuery(context.Background(), "x", 3)
	assert.Equal(t, Fatal, r.Kind)
	assert.ErrorIs(t, r.Err, ErrStore)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := New(&fakeStore{wines: []catalog.Wine{redCheap}}, &fakeEmbedder{}, Config{Metrics: m})

	svc.ByAttributes(context.Background(), AttributeQuery{Color: "red"})
	svc.ByAttributes(context.Background(), AttributeQuery{})
	svc.ByQuery(context.Background(), "x", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("attributes", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("attributes", "recovered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("query", "empty")))
}
