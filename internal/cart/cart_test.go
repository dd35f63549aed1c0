package cart

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdd_Confirmation(t *testing.T) {
	t.Parallel()
	s := New(nil)
	if got, want := s.Add(1, " Château X ", ""), "Вино ' Château X ' добавлено в вашу корзину!"; got != want {
		t.Errorf("Add() = %q, want %q", got, want)
	}
}

func TestShow_Empty(t *testing.T) {
	t.Parallel()
	if got := New(nil).Show(7); got != MsgEmpty {
		t.Errorf("Show() = %q, want %q", got, MsgEmpty)
	}
}

func TestShow_RoundTripTrimsDetails(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "Château X", " region info ")

	got := s.Show(1)
	if !strings.Contains(got, "Château X — region info") {
		t.Errorf("Show() = %q, want a line with trimmed details", got)
	}
	if got != "🍷 Ваша корзина:\n\n• Château X — region info" {
		t.Errorf("Show() = %q", got)
	}
}

func TestShow_InsertionOrder(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "A", "")
	s.Add(1, "B", "сухое")
	s.Add(1, "A", "")

	want := MsgHeader + "• A\n• B — сухое\n• A"
	if got := s.Show(1); got != want {
		t.Errorf("Show() = %q, want %q", got, want)
	}
}

func TestAdd_EmptyNameAccepted(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "   ", "")
	if items := s.Items(1); len(items) != 1 || items[0].Name != "" {
		t.Errorf("Items() = %+v, want one item with an empty name", items)
	}
}

func TestClear_Idempotent(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "A", "")

	if got := s.Clear(1); got != MsgCleared {
		t.Errorf("first Clear() = %q, want %q", got, MsgCleared)
	}
	if got := s.Clear(1); got != MsgAlreadyEmpty {
		t.Errorf("second Clear() = %q, want %q", got, MsgAlreadyEmpty)
	}
	if items := s.Items(1); items != nil {
		t.Errorf("cart should be absent, got %+v", items)
	}
	if got := s.Show(1); got != MsgEmpty {
		t.Errorf("Show() after Clear = %q", got)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "A", "")
	s.Add(2, "B", "")
	s.Clear(1)
	if got := s.Show(2); got != MsgHeader+"• B" {
		t.Errorf("user 2 cart = %q", got)
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	t.Parallel()
	s := New(nil)
	s.Add(1, "A", "")
	items := s.Items(1)
	items[0].Name = "mutated"
	if s.Items(1)[0].Name != "A" {
		t.Error("Items must not expose internal storage")
	}
}

func TestConcurrentAddsSameUser(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s := New(reg)

	const n = 200
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(42, fmt.Sprintf("wine-%d", i), "")
		}()
	}
	wg.Wait()

	if got := len(s.Items(42)); got != n {
		t.Errorf("lost entries: got %d items, want %d", got, n)
	}
	if got := testutil.ToFloat64(s.adds); got != n {
		t.Errorf("adds counter = %v, want %d", got, n)
	}
}
