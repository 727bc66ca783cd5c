// Package rank scores and orders candidates against a query using
// subsequence fuzzy matching. It holds no state and performs no I/O.
package rank

import (
	"slices"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

const (
	// Floor is the score at or below which a candidate is excluded.
	// Every candidate that matches scores strictly above it.
	Floor = 0

	// lengthWeight scales the bonus for short titles that the query covers
	// almost completely.
	lengthWeight = 32

	slab16Size = 100 * 1024
	slab32Size = 2048
)

func init() {
	// The matcher's character classes and bonus table are empty until Init.
	algo.Init("default")
}

// Match is one ranked candidate.
type Match[T any] struct {
	Item T
	// Index is the candidate's position in the input slice.
	Index int
	Score int
	// Positions are ascending rune offsets of the matched characters in the title.
	Positions []int
}

// Rank returns the items whose title contains the query as a case-insensitive
// subsequence, best first. Equal scores keep input order. An empty query
// returns every item in input order with a zero score.
func Rank[T any](query string, items []T, title func(T) string) []Match[T] {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Match[T], len(items))
		for i, item := range items {
			out[i] = Match[T]{Item: item, Index: i}
		}
		return out
	}

	pattern := []rune(strings.ToLower(query))
	slab := util.MakeSlab(slab16Size, slab32Size)

	var out []Match[T]
	for i, item := range items {
		score, positions, ok := score(pattern, title(item), slab)
		if !ok {
			continue
		}
		out = append(out, Match[T]{Item: item, Index: i, Score: score, Positions: positions})
	}

	slices.SortStableFunc(out, func(a, b Match[T]) int {
		return b.Score - a.Score
	})
	return out
}

// Score matches a single title. It reports false when the query is not a
// subsequence of the title.
func Score(query, title string) (int, []int, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, true
	}
	return score([]rune(strings.ToLower(query)), title, nil)
}

func score(pattern []rune, title string, slab *util.Slab) (int, []int, bool) {
	runes := []rune(title)
	if len(runes) < len(pattern) {
		return 0, nil, false
	}
	chars := util.RunesToChars(runes)
	res, pos := algo.FuzzyMatchV2(false, false, true, &chars, pattern, true, slab)
	if res.Start < 0 {
		return 0, nil, false
	}

	s := res.Score + lengthWeight*len(pattern)/len(runes)
	if s <= Floor {
		s = Floor + 1
	}

	var positions []int
	if pos != nil {
		positions = slices.Clone(*pos)
		slices.Sort(positions)
	}
	return s, positions, true
}
