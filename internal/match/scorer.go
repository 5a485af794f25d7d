package match

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Scorer rates the similarity of a query name and a candidate name in
// [0, 1].
type Scorer interface {
	Score(query, result string) float64
}

// JaccardScorer computes token-set Jaccard similarity.
type JaccardScorer struct{}

func (JaccardScorer) Score(query, result string) float64 {
	a := tokenSet(query)
	b := tokenSet(result)
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// WeightedJaccardScorer computes IDF-weighted Jaccard similarity, so
// rare tokens count for more than ubiquitous ones.
type WeightedJaccardScorer struct {
	tokenFreq map[string]int
	documents int
}

// NewWeightedJaccardScorer builds token frequencies from a corpus of
// candidate names.
func NewWeightedJaccardScorer(documents []string) *WeightedJaccardScorer {
	s := &WeightedJaccardScorer{tokenFreq: make(map[string]int)}
	for _, doc := range documents {
		s.documents++
		for _, t := range Tokenize(doc) {
			s.tokenFreq[t]++
		}
	}
	return s
}

func (s *WeightedJaccardScorer) idf(token string) float64 {
	freq := s.tokenFreq[token]
	if freq < 1 {
		freq = 1
	}
	return math.Log(float64(s.documents) / float64(freq))
}

func (s *WeightedJaccardScorer) Score(query, result string) float64 {
	a := tokenSet(query)
	b := tokenSet(result)
	var num, den float64
	matched := false
	for t := range a {
		if _, ok := b[t]; ok {
			num += s.idf(t)
			matched = true
		}
		den += s.idf(t)
	}
	for t := range b {
		if _, ok := a[t]; !ok {
			den += s.idf(t)
		}
	}
	if !matched || den == 0 {
		return 0
	}
	return num / den
}

// LevenshteinScorer computes the Levenshtein similarity ratio over the
// tokenized, space-joined names, so punctuation and spacing quirks do
// not count as edits.
type LevenshteinScorer struct{}

func (LevenshteinScorer) Score(query, result string) float64 {
	a := strings.Join(Tokenize(query), " ")
	b := strings.Join(Tokenize(result), " ")
	if a == "" && b == "" {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// HarmonicMean returns the harmonic mean of the scores; any zero score
// collapses the mean to zero.
func HarmonicMean(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		sum += 1 / s
	}
	return float64(len(scores)) / sum
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(s) {
		set[t] = struct{}{}
	}
	return set
}
