// Package cart holds each user's in-memory wine cart. Carts are created on
// first add, removed only by Clear, and lost on restart.
package cart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fixed user-facing messages.
const (
	msgAdded        = "Вино '%s' добавлено в вашу корзину!"
	MsgEmpty        = "🛒 Ваша корзина пуста."
	MsgHeader       = "🍷 Ваша корзина:\n\n"
	MsgCleared      = "Ваша корзина успешно очищена!"
	MsgAlreadyEmpty = "🛒 Ваша корзина и так пуста."
)

// Item is one cart entry.
type Item struct {
	// Name is the wine name, trimmed.
	Name string
	// Details is free-form extra information, trimmed. May be empty.
	Details string
}

// Store maps user IDs to ordered carts. All methods are safe for concurrent
// use; a single mutex serialises mutations so concurrent adds for the same
// user never lose entries.
type Store struct {
	mu    sync.Mutex
	carts map[int64][]Item
	adds  prometheus.Counter
}

// New returns an empty Store. reg may be nil to skip metrics.
func New(reg prometheus.Registerer) *Store {
	s := &Store{carts: make(map[int64][]Item)}
	if reg != nil {
		s.adds = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sommelier_cart_adds_total",
			Help: "Wines added to carts.",
		})
	}
	return s
}

// Add appends a wine to the user's cart and returns the confirmation. The
// confirmation echoes name as given; the stored item is trimmed. Empty names
// are accepted.
func (s *Store) Add(userID int64, name, details string) string {
	item := Item{Name: strings.TrimSpace(name), Details: strings.TrimSpace(details)}

	s.mu.Lock()
	s.carts[userID] = append(s.carts[userID], item)
	s.mu.Unlock()

	if s.adds != nil {
		s.adds.Inc()
	}
	return fmt.Sprintf(msgAdded, name)
}

// Items returns a copy of the user's cart in insertion order.
func (s *Store) Items(userID int64) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Show renders the user's cart, one "• name" or "• name — details" line per
// item after a header.
func (s *Store) Show(userID int64) string {
	items := s.Items(userID)
	if len(items) == 0 {
		return MsgEmpty
	}
	lines := make([]string, len(items))
	for i, it := range items {
		if it.Details != "" {
			lines[i] = "• " + it.Name + " — " + it.Details
		} else {
			lines[i] = "• " + it.Name
		}
	}
	return MsgHeader + strings.Join(lines, "\n")
}

// Clear removes the user's cart. Clearing an absent cart is a no-op with a
// different message.
func (s *Store) Clear(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[userID]; !ok {
		return MsgAlreadyEmpty
	}
	delete(s.carts, userID)
	return MsgCleared
}
