package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/sommelier-go/internal/search"
)

// Tool names.
const (
	NameByAttributes = "search_wines_by_attributes"
	NameByQuery      = "search_wines_by_query"
	NameAddToCart    = "add_wine_to_cart"
)

// AttributesTool filters the catalog by colour, country, price and acidity.
type AttributesTool struct {
	searcher Searcher
}

// AttributesInput is the JSON input of AttributesTool.
type AttributesInput struct {
	Color    string   `json:"color,omitempty" jsonschema:"wine colour, e.g. red or white"`
	Country  string   `json:"country,omitempty" jsonschema:"country of origin in English, partial match"`
	MinPrice *float64 `json:"min_price,omitempty" jsonschema:"minimum price in roubles, inclusive"`
	MaxPrice *float64 `json:"max_price,omitempty" jsonschema:"maximum price in roubles, inclusive"`
	Acidity  string   `json:"acidity,omitempty" jsonschema:"Сухое, Полусухое, Полусладкое or Сладкое"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum results, default 3, at most 30"`
}

// Query converts the input into a search query.
func (in AttributesInput) Query() search.AttributeQuery {
	return search.AttributeQuery{
		Color:    in.Color,
		Country:  in.Country,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Acidity:  in.Acidity,
		Limit:    in.Limit,
	}
}

// NewAttributesTool constructs an AttributesTool.
func NewAttributesTool(s Searcher) *AttributesTool {
	return &AttributesTool{searcher: s}
}

// Name implements RetrievalTool.
func (t *AttributesTool) Name() string { return NameByAttributes }

// Description implements RetrievalTool.
func (t *AttributesTool) Description() string {
	return "Ищет вина в каталоге по ПАРАМЕТРАМ: цвет, страна, цена, кислотность. " +
		"Используй, когда пользователь хочет отфильтровать вина по этим атрибутам. " +
		"НИКОГДА не используй для общих вопросов про вино, блюда или регионы. " +
		"Нужен хотя бы один параметр; лимит сам по себе не является параметром."
}

// Info implements tool.BaseTool.
func (t *AttributesTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"color": {
				Type: schema.String,
				Desc: "Цвет вина, например \"red\" или \"white\".",
			},
			"country": {
				Type: schema.String,
				Desc: "Страна производства на английском, можно частично: \"France\", \"Fr\", \"USA\".",
			},
			"min_price": {
				Type: schema.Number,
				Desc: "Минимальная цена в рублях, включительно.",
			},
			"max_price": {
				Type: schema.Number,
				Desc: "Максимальная цена в рублях, включительно.",
			},
			"acidity": {
				Type: schema.String,
				Desc: "Кислотность: \"Сухое\", \"Полусухое\", \"Полусладкое\" или \"Сладкое\".",
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Максимум результатов: по умолчанию 3, не больше 30.",
			},
		}),
	}, nil
}

// InvokableRun implements tool.InvokableTool.
func (t *AttributesTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in AttributesInput
	if err := decodeArgs(argumentsInJSON, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name(), err)
	}
	return t.searcher.ByAttributes(ctx, in.Query()).Text()
}

// QueryTool runs hybrid semantic search over wine descriptions.
type QueryTool struct {
	searcher Searcher
}

// QueryInput is the JSON input of QueryTool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"free-text question, description or wine name"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results, default 3, at most 10"`
}

// NewQueryTool constructs a QueryTool.
func NewQueryTool(s Searcher) *QueryTool {
	return &QueryTool{searcher: s}
}

// Name implements RetrievalTool.
func (t *QueryTool) Name() string { return NameByQuery }

// Description implements RetrievalTool.
func (t *QueryTool) Description() string {
	return "Семантический (гибридный) поиск вин по описанию, вопросу или названию. " +
		"Используй для любых текстовых запросов: названия, описания, сочетания с едой, " +
		"регионы, рекомендации, сравнения. Например: \"что подходит к рыбе?\", \"расскажи про Шабли\"."
}

// Info implements tool.BaseTool.
func (t *QueryTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Текстовый запрос пользователя.",
				Required: true,
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Максимум результатов: по умолчанию 3, не больше 10.",
			},
		}),
	}, nil
}

// InvokableRun implements tool.InvokableTool.
func (t *QueryTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in QueryInput
	if err := decodeArgs(argumentsInJSON, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name(), err)
	}
	return t.searcher.ByQuery(ctx, in.Query, in.Limit).Text()
}

// decodeArgs unmarshals tool arguments. Models occasionally send an empty
// string for a call without arguments.
func decodeArgs(argumentsInJSON string, v any) error {
	if argumentsInJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(argumentsInJSON), v)
}
