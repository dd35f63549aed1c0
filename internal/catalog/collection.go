package catalog

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// payloadIndexes are created alongside the collection so filtered scrolls
// stay indexed: keyword for exact matches, full-text for Country, float for
// the price range.
var payloadIndexes = []struct {
	field string
	typ   qdrant.FieldType
}{
	{FieldColor, qdrant.FieldType_FieldTypeKeyword},
	{FieldAcidity, qdrant.FieldType_FieldTypeKeyword},
	{FieldCountry, qdrant.FieldType_FieldTypeText},
	{FieldPrice, qdrant.FieldType_FieldTypeFloat},
}

// EnsureCollection creates the catalog collection with its named dense and
// BM25 vectors and payload indexes if it does not already exist. dim is the
// embedding dimensionality.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dim uint64) (created bool, err error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("catalog: failed to check collection existence: %w", err)
	}
	if exists {
		return false, nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			DenseVector: {Size: dim, Distance: qdrant.Distance_Cosine},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			SparseVector: {Modifier: qdrant.Modifier_Idf.Enum()},
		}),
	})
	if err != nil {
		return false, fmt.Errorf("catalog: failed to create collection %q: %w", s.collection, err)
	}

	for _, idx := range payloadIndexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      idx.field,
			FieldType:      idx.typ.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return true, fmt.Errorf("catalog: failed to index %s: %w", idx.field, err)
		}
	}
	return true, nil
}

// Upsert writes a batch of points, waiting for the write to be applied.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         toPointStructs(points),
	})
	if err != nil {
		return fmt.Errorf("catalog: upsert of %d points failed: %w", len(points), err)
	}
	return nil
}

// toPointStructs builds Qdrant points. The BM25 vector is sent as a document
// so the server computes it with the same model the query side uses.
func toPointStructs(points []Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		out = append(out, &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				DenseVector: qdrant.NewVectorDense(p.Dense),
				SparseVector: qdrant.NewVectorDocument(&qdrant.Document{
					Text:  sparseText(p.Wine),
					Model: BM25Model,
				}),
			}),
			Payload: qdrant.NewValueMap(pointPayload(p)),
		})
	}
	return out
}

// sparseText is the text indexed for BM25: the description, else the name.
func sparseText(w Wine) string {
	if w.Description != "" {
		return w.Description
	}
	return w.Name
}

// pointPayload returns the payload map for p. Empty fields are omitted so
// they decode back as "".
func pointPayload(p Point) map[string]any {
	payload := make(map[string]any, 7)
	set := func(k, v string) {
		if v != "" {
			payload[k] = v
		}
	}
	set(FieldName, p.Wine.Name)
	set(FieldCountry, p.Wine.Country)
	set(FieldColor, p.Wine.Color)
	set(FieldAcidity, p.Wine.Acidity)
	set(FieldVolume, p.Wine.Volume)
	set(FieldDescription, p.Wine.Description)
	if p.PriceNumber != nil {
		payload[FieldPrice] = *p.PriceNumber
	} else {
		set(FieldPrice, p.Wine.Price)
	}
	return payload
}
