// Package source builds the list of pending work items for a run.
package source

import "github.com/UniQw/bulkscan/internal/ledger"

// Item is one unit of work: a task identity and the URL to classify.
type Item struct {
	Key ledger.Key
	URL string
}

// Universe describes every (row, field) pair eligible for processing.
type Universe struct {
	// Rows is the number of rows; row indexes run 0..Rows-1.
	Rows int
	// Fields lists the URL-bearing field keys in the order items are emitted per row.
	Fields []string
	// URL returns the raw cell value for a pair.
	URL func(row int, field string) string
}

// Size is the number of distinct (row, field) pairs in the universe.
func (u Universe) Size() int {
	return u.Rows * len(uniqueFields(u.Fields))
}

// Pending returns the items whose key is not yet done, rows in natural order
// and fields in the universe's order. It has no side effects.
func Pending(u Universe, done func(ledger.Key) bool) []Item {
	fields := uniqueFields(u.Fields)
	out := make([]Item, 0, u.Rows*len(fields))
	for row := 0; row < u.Rows; row++ {
		for _, f := range fields {
			k := ledger.Key{Row: row, Field: f}
			if done != nil && done(k) {
				continue
			}
			var url string
			if u.URL != nil {
				url = u.URL(row, f)
			}
			out = append(out, Item{Key: k, URL: url})
		}
	}
	return out
}

func uniqueFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
