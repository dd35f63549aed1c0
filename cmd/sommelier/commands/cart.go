package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/config"
)

// cartReply covers both the GET and DELETE /api/cart bodies.
type cartReply struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// NewCartCmd constructs `sommelier cart`. Carts live in the serving process,
// so the command talks to a running `sommelier serve --http`.
func NewCartCmd() *cobra.Command {
	var userID int64
	var addr string
	var clearCart bool

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or clear a user's cart on a running server",
		Long: `Show or clear the cart of --user on a running sommelier HTTP API.
SOMMELIER_API_KEY is sent as a bearer token when set.

Examples:
  sommelier cart --user 42
  sommelier cart --user 42 --clear --server http://10.0.0.5:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("cart: --user is required")
			}
			method := http.MethodGet
			if clearCart {
				method = http.MethodDelete
			}

			reply, err := callCart(cmd, method, addr, userID)
			if err != nil {
				return fmt.Errorf("cart: %w", err)
			}
			text := reply.Text
			if clearCart {
				text = reply.Message
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err //nolint:wrapcheck // CLI entry point
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User ID whose cart to read")
	cmd.Flags().StringVar(&addr, "server", "http://127.0.0.1:8080", "Base URL of the sommelier HTTP API")
	cmd.Flags().BoolVar(&clearCart, "clear", false, "Clear the cart instead of showing it")

	return cmd
}

func callCart(cmd *cobra.Command, method, base string, userID int64) (*cartReply, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/api/cart")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", base, err)
	}
	u.RawQuery = url.Values{"user_id": {strconv.FormatInt(userID, 10)}}.Encode()

	req, err := http.NewRequestWithContext(cmd.Context(), method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if key := config.EnvOr("SOMMELIER_API_KEY", ""); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var reply cartReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &reply, nil
}
