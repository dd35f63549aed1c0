package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// ErrNoUser is returned when the cart tool runs without a user in context.
var ErrNoUser = errors.New("tools: no chat user in context")

// CartTool adds a wine to the current user's cart. The user comes from the
// context (see WithUserID), never from the model's arguments.
type CartTool struct {
	cart Cart
}

// CartInput is the JSON input of CartTool.
type CartInput struct {
	WineName    string `json:"wine_name" jsonschema:"wine name"`
	WineDetails string `json:"wine_details,omitempty" jsonschema:"extra details such as country, price or volume"`
}

// NewCartTool constructs a CartTool.
func NewCartTool(c Cart) *CartTool {
	return &CartTool{cart: c}
}

// Name implements RetrievalTool.
func (t *CartTool) Name() string { return NameAddToCart }

// Description implements RetrievalTool.
func (t *CartTool) Description() string {
	return "Добавляет вино в корзину пользователя. Используй, когда пользователь просит " +
		"добавить, отложить или купить конкретное вино."
}

// Info implements tool.BaseTool.
func (t *CartTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"wine_name": {
				Type:     schema.String,
				Desc:     "Название вина.",
				Required: true,
			},
			"wine_details": {
				Type: schema.String,
				Desc: "Дополнительная информация: страна, цена, объём.",
			},
		}),
	}, nil
}

// InvokableRun implements tool.InvokableTool.
func (t *CartTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in CartInput
	if err := decodeArgs(argumentsInJSON, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name(), err)
	}
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return "", fmt.Errorf("%s: %w", t.Name(), ErrNoUser)
	}
	return t.cart.Add(userID, in.WineName, in.WineDetails), nil
}
