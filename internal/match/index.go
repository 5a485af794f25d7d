package match

import (
	"fmt"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Index is an inverted token index over one frame column, used to
// propose candidate rows for a query name.
type Index struct {
	postings map[string][]int
	stop     map[string]struct{}
}

// NewIndex indexes the named column. Stop words are indexed but
// ignored at query time.
func NewIndex(f *frame.Frame, field string, stop map[string]struct{}) (*Index, error) {
	col, ok := f.Column(field)
	if !ok {
		return nil, fmt.Errorf("index: no column %q", field)
	}
	idx := &Index{postings: make(map[string][]int), stop: stop}
	for row := 0; row < f.Len(); row++ {
		v, vok := col.Value(row)
		if !vok {
			continue
		}
		seen := make(map[string]struct{})
		for _, t := range Tokenize(frame.FormatValue(v)) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			idx.postings[t] = append(idx.postings[t], row)
		}
	}
	return idx, nil
}

// Candidates returns the distinct rows sharing at least one
// non-stop-word token with the query, in first-seen order.
func (idx *Index) Candidates(query string) []int {
	var rows []int
	seen := make(map[int]struct{})
	for _, t := range Tokenize(query) {
		if idx.stop != nil {
			if _, skip := idx.stop[t]; skip {
				continue
			}
		}
		for _, row := range idx.postings[t] {
			if _, dup := seen[row]; dup {
				continue
			}
			seen[row] = struct{}{}
			rows = append(rows, row)
		}
	}
	return rows
}
