package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/54b3r/sommelier-go/internal/cart"
	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/search"
	"github.com/54b3r/sommelier-go/internal/tools"
)

type fakeSearcher struct {
	lastAttrs search.AttributeQuery
	lastText  string
	lastLimit int
	err       error
}

func (f *fakeSearcher) ByAttributes(_ context.Context, q search.AttributeQuery) search.Result {
	f.lastAttrs = q
	if f.err != nil {
		return search.Result{Kind: search.Fatal, Err: f.err}
	}
	return search.Result{Kind: search.Found, Wines: []catalog.Wine{{Name: "Chablis", Color: "white"}}}
}

func (f *fakeSearcher) ByQuery(_ context.Context, text string, limit int) search.Result {
	f.lastText, f.lastLimit = text, limit
	return search.Result{Kind: search.Empty, Message: search.MsgNoQueryMatches}
}

// ServerTestSuite connects a client to the server over in-memory transports.
type ServerTestSuite struct {
	suite.Suite
	searcher *fakeSearcher
	cart     *cart.Store
	server   *Server
	session  *mcp.ClientSession
	ctx      context.Context
	cancel   context.CancelFunc
}

func (s *ServerTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.searcher = &fakeSearcher{}
	s.cart = cart.New(nil)
	s.server = New(s.searcher, s.cart, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := s.server.server.Connect(s.ctx, serverTransport, nil)
	require.NoError(s.T(), err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	s.session, err = client.Connect(s.ctx, clientTransport, nil)
	require.NoError(s.T(), err)
}

func (s *ServerTestSuite) TearDownTest() {
	_ = s.session.Close()
	s.cancel()
}

func (s *ServerTestSuite) call(name string, args map[string]any) *mcp.CallToolResult {
	res, err := s.session.CallTool(s.ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Content, 1)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(*mcp.TextContent).Text
}

func (s *ServerTestSuite) TestListTools() {
	res, err := s.session.ListTools(s.ctx, nil)
	require.NoError(s.T(), err)

	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
		s.NotEmpty(t.Description, t.Name)
	}
	sort.Strings(names)
	s.Equal([]string{tools.NameAddToCart, tools.NameByAttributes, tools.NameByQuery}, names)
}

func (s *ServerTestSuite) TestByAttributes() {
	res := s.call(tools.NameByAttributes, map[string]any{"color": "white", "max_price": 2000, "limit": 5})

	s.False(res.IsError)
	s.Contains(text(res), "Chablis")
	s.Equal("white", s.searcher.lastAttrs.Color)
	s.Equal(5, s.searcher.lastAttrs.Limit)
	s.Require().NotNil(s.searcher.lastAttrs.MaxPrice)
	s.InDelta(2000, *s.searcher.lastAttrs.MaxPrice, 0)
	s.Nil(s.searcher.lastAttrs.MinPrice)
}

func (s *ServerTestSuite) TestByAttributes_StoreFailureIsToolError() {
	s.searcher.err = errors.New("qdrant unavailable")
	res := s.call(tools.NameByAttributes, map[string]any{"color": "red"})

	s.True(res.IsError)
	s.Contains(text(res), "qdrant unavailable")
}

func (s *ServerTestSuite) TestByQuery() {
	res := s.call(tools.NameByQuery, map[string]any{"query": "к рыбе"})

	s.False(res.IsError)
	s.Equal(search.MsgNoQueryMatches, text(res))
	s.Equal("к рыбе", s.searcher.lastText)
	s.Equal(0, s.searcher.lastLimit)
}

func (s *ServerTestSuite) TestAddToCart() {
	res := s.call(tools.NameAddToCart, map[string]any{"user_id": 42, "wine_name": "Barolo", "wine_details": "Италия"})

	s.False(res.IsError)
	s.Equal("Вино 'Barolo' добавлено в вашу корзину!", text(res))
	s.Equal(cart.MsgHeader+"• Barolo — Италия", s.cart.Show(42))
	s.Equal(cart.MsgEmpty, s.cart.Show(43))
}

func (s *ServerTestSuite) TestAddToCart_RequiresUser() {
	res := s.call(tools.NameAddToCart, map[string]any{"wine_name": "Barolo"})

	s.True(res.IsError)
	s.Equal(cart.MsgEmpty, s.cart.Show(0))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestHandler_ServesStreamableHTTP(t *testing.T) {
	t.Parallel()

	srv := New(&fakeSearcher{}, cart.New(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "http-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.NameByQuery,
		Arguments: map[string]any{"query": "Шабли"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, search.MsgNoQueryMatches, res.Content[0].(*mcp.TextContent).Text)
}
