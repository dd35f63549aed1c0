// Package search implements the two catalog retrieval strategies:
// attribute filtering and hybrid semantic search. Both return a tagged
// Result instead of mixing user-facing strings with errors.
package search

import "github.com/54b3r/sommelier-go/internal/catalog"

// Fixed user-facing messages.
const (
	MsgNeedFilter      = "Укажите хотя бы один параметр: цвет, страну, цену или кислотность."
	MsgNoAttrMatches   = "Ничего не найдено по заданным критериям."
	MsgNoQueryMatches  = "Ничего не найдено по вашему запросу."
	MsgEmbeddingFailed = "Не удалось обработать запрос."
)

// Kind tags the outcome of a search.
type Kind int

const (
	// Found means at least one wine matched.
	Found Kind = iota
	// Empty means the store answered with zero hits.
	Empty
	// Recovered means the search stopped early with a message for the user:
	// a rejected request or a failed embedding.
	Recovered
	// Fatal means the catalog store failed. Err is set.
	Fatal
)

// String implements fmt.Stringer. The values are used as metric labels.
func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Empty:
		return "empty"
	case Recovered:
		return "recovered"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Result is the outcome of a search.
type Result struct {
	// Kind tags which of the other fields are meaningful.
	Kind Kind
	// Wines holds the hits for Found.
	Wines []catalog.Wine
	// Message holds the user-facing text for Empty and Recovered.
	Message string
	// Err holds the store failure for Fatal.
	Err error
}

// Text renders the result for the agent. Fatal results return their error
// and no text; every other kind is a successful tool reply.
func (r Result) Text() (string, error) {
	switch r.Kind {
	case Found:
		return FormatWines(r.Wines), nil
	case Fatal:
		return "", r.Err
	default:
		return r.Message, nil
	}
}

func found(wines []catalog.Wine) Result { return Result{Kind: Found, Wines: wines} }

func empty(msg string) Result { return Result{Kind: Empty, Message: msg} }

func recovered(msg string) Result { return Result{Kind: Recovered, Message: msg} }

func fatal(err error) Result { return Result{Kind: Fatal, Err: err} }
