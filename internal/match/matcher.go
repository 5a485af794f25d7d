package match

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/nces"
)

// Options tunes candidate scoring.
type Options struct {
	// Threshold is the minimum harmonic-mean score to keep a candidate.
	Threshold float64
	// Limit caps how many candidates are kept per query.
	Limit int
	// Weighted switches token overlap to IDF-weighted Jaccard, so rare
	// tokens dominate over ubiquitous ones like "county" or "public".
	Weighted bool
}

// DefaultOptions mirror the thresholds used when the curated lookup
// files were first produced.
func DefaultOptions() Options {
	return Options{Threshold: 0.3, Limit: 1}
}

// Result is one scored roster candidate.
type Result struct {
	Row   int
	Score float64
}

// Matcher scores query names against one roster column.
type Matcher struct {
	roster  *frame.Frame
	field   string
	index   *Index
	overlap Scorer
	lev     LevenshteinScorer
	opts    Options
}

// NewMatcher indexes the roster column and prepares the scorers.
func NewMatcher(roster *frame.Frame, field string, opts Options) (*Matcher, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultOptions().Limit
	}
	idx, err := NewIndex(roster, field, StopWords)
	if err != nil {
		return nil, err
	}
	m := &Matcher{roster: roster, field: field, index: idx, opts: opts}
	if opts.Weighted {
		col, _ := roster.Column(field)
		docs := make([]string, 0, roster.Len())
		for row := 0; row < roster.Len(); row++ {
			if v, ok := col.Value(row); ok {
				docs = append(docs, frame.FormatValue(v))
			}
		}
		m.overlap = NewWeightedJaccardScorer(docs)
	} else {
		m.overlap = JaccardScorer{}
	}
	return m, nil
}

// Match returns the best candidates for a query name, sorted by score
// descending. An exact score of 1.0 short-circuits to a single result.
func (m *Matcher) Match(query string) []Result {
	col, _ := m.roster.Column(m.field)
	var results []Result
	for _, row := range m.index.Candidates(query) {
		v, ok := col.Value(row)
		if !ok {
			continue
		}
		name := frame.FormatValue(v)
		score := HarmonicMean(m.overlap.Score(query, name), m.lev.Score(query, name))
		if score == 1.0 {
			return []Result{{Row: row, Score: score}}
		}
		if score > m.opts.Threshold {
			results = append(results, Result{Row: row, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > m.opts.Limit {
		results = results[:m.opts.Limit]
	}
	return results
}

// MatchFrame scores every row of the input against the roster and
// returns input columns + roster columns + match_score. Rows without a
// qualifying candidate keep their input values with null roster cells.
// The tracker, when non-nil, advances once per input row.
func (m *Matcher) MatchFrame(input *frame.Frame, queryCol string, tracker *progress.Tracker) (*frame.Frame, error) {
	qc, ok := input.Column(queryCol)
	if !ok {
		return nil, fmt.Errorf("match: input has no column %q", queryCol)
	}

	out := newOutputFrame(input, m.roster)

	for row := 0; row < input.Len(); row++ {
		var results []Result
		if v, vok := qc.Value(row); vok {
			results = m.Match(frame.FormatValue(v))
		}
		if len(results) == 0 {
			if err := appendMatchRow(out, input, m.roster, row, -1, nil); err != nil {
				return nil, err
			}
		}
		for _, r := range results {
			score := r.Score
			if err := appendMatchRow(out, input, m.roster, row, r.Row, &score); err != nil {
				return nil, err
			}
		}
		if tracker != nil {
			tracker.Increment(1)
		}
	}
	return out, nil
}

func newOutputFrame(input, roster *frame.Frame) *frame.Frame {
	f, _ := frame.New()
	for _, name := range input.Columns() {
		c, _ := input.Column(name)
		_ = f.AddColumn(frame.NewColumn(c.Name, c.Kind, 0))
	}
	for _, name := range roster.Columns() {
		c, _ := roster.Column(name)
		outName := c.Name
		if f.HasColumn(outName) {
			outName = "nces_" + outName
		}
		_ = f.AddColumn(frame.NewColumn(outName, c.Kind, 0))
	}
	_ = f.AddColumn(frame.NewColumn("match_score", frame.Float, 0))
	return f
}

func appendMatchRow(out, input, roster *frame.Frame, inRow, rosterRow int, score *float64) error {
	names := out.Columns()
	pos := 0
	for _, name := range input.Columns() {
		src, _ := input.Column(name)
		dst, _ := out.Column(names[pos])
		v, ok := src.Value(inRow)
		if !ok {
			v = nil
		}
		if err := dst.Append(v); err != nil {
			return err
		}
		pos++
	}
	for _, name := range roster.Columns() {
		src, _ := roster.Column(name)
		dst, _ := out.Column(names[pos])
		var v any
		if rosterRow >= 0 {
			if val, ok := src.Value(rosterRow); ok {
				v = val
			}
		}
		if err := dst.Append(v); err != nil {
			return err
		}
		pos++
	}
	scoreCol, _ := out.Column("match_score")
	if score == nil {
		scoreCol.AppendNull()
		return nil
	}
	return scoreCol.Append(*score)
}

// ValidateStateFile checks an input CSV's state columns against its
// two-letter file-name prefix and returns the abbreviation. Matcher
// inputs are named like "CO_schools.csv".
func ValidateStateFile(path string, f *frame.Frame) (string, error) {
	base := filepath.Base(path)
	if len(base) < 2 {
		return "", fmt.Errorf("%s: file name does not start with a state abbreviation", path)
	}
	abbrev := strings.ToUpper(base[:2])
	name, known := nces.StateNames[abbrev]
	if !known {
		return "", fmt.Errorf("%s: unknown state abbreviation %q", path, abbrev)
	}
	if err := checkUniform(f, "StateAbbrev", abbrev); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := checkUniform(f, "State", name); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return abbrev, nil
}

func checkUniform(f *frame.Frame, column, want string) error {
	col, ok := f.Column(column)
	if !ok {
		return nil // column is optional
	}
	for row := 0; row < f.Len(); row++ {
		v, vok := col.Value(row)
		if !vok {
			continue
		}
		if got := strings.TrimSpace(frame.FormatValue(v)); got != want {
			return fmt.Errorf("column %s row %d is %q, want %q", column, row+1, got, want)
		}
	}
	return nil
}
