package resolve

import (
	"sort"
	"strings"

	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/normalize"
)

// Scoring thresholds for fuzzy catalog matching.
const (
	// AutoAcceptScore is the similarity at or above which a match is taken
	// without review.
	AutoAcceptScore = 80
	// substringBoostScore is the floor applied when one name contains the
	// other and the lengths are comparable.
	substringBoostScore = 85
	// substringLengthRatio guards the boost against tiny substrings
	// inflating the score.
	substringLengthRatio = 0.6
)

// MatchStatus is the outcome of a fuzzy catalog resolution.
type MatchStatus string

const (
	// MatchAuto means the best match scored high enough to accept.
	MatchAuto MatchStatus = "AUTO"
	// MatchPendingReview means no match cleared the threshold; a human
	// decides.
	MatchPendingReview MatchStatus = "PENDING_REVIEW"
)

// CatalogMatch is the result of scoring a raw name against the catalog.
type CatalogMatch struct {
	BestMatch  *model.Product
	Status     MatchStatus
	Score      int
	CategoryID int
}

// ResolveAgainstCatalog scores a raw name against a snapshot of the catalog
// and either auto-accepts the best match or signals pending review carrying
// the best score found for diagnostics.
func ResolveAgainstCatalog(nameRaw string, catalog []model.Product) CatalogMatch {
	key := normalize.Key(nameRaw)

	best := CatalogMatch{Status: MatchPendingReview}
	for i := range catalog {
		score := Similarity(key, catalog[i].NormalizedName)
		if score > best.Score {
			best.Score = score
			best.BestMatch = &catalog[i]
		}
	}

	if best.BestMatch != nil && best.Score >= AutoAcceptScore {
		best.Status = MatchAuto
		best.CategoryID = best.BestMatch.CategoryID
	} else {
		best.BestMatch = nil
	}

	return best
}

// Suggestion pairs a catalog product with its similarity score.
type Suggestion struct {
	Product model.Product
	Score   int
}

// TopSuggestions returns the highest-scoring catalog products for a name,
// excluding the product with excludeID, best first.
func TopSuggestions(name string, catalog []model.Product, excludeID string, limit int) []Suggestion {
	key := normalize.Key(name)

	var suggestions []Suggestion
	for i := range catalog {
		if catalog[i].ID == excludeID {
			continue
		}
		score := Similarity(key, catalog[i].NormalizedName)
		if score > 0 {
			suggestions = append(suggestions, Suggestion{Product: catalog[i], Score: score})
		}
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Score > suggestions[b].Score
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Similarity scores two normalized names 0–100: normalized Levenshtein
// similarity, boosted to at least 85 when one name contains the other and
// the shorter is at least 60% of the longer.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	maxLen := len(a)
	minLen := len(b)
	if minLen > maxLen {
		maxLen, minLen = minLen, maxLen
	}

	score := 100 * (maxLen - levenshtein(a, b)) / maxLen

	if containsEither(a, b) && float64(minLen)/float64(maxLen) >= substringLengthRatio {
		if score < substringBoostScore {
			score = substringBoostScore
		}
	}

	return score
}

func containsEither(a, b string) bool {
	if len(a) >= len(b) {
		return strings.Contains(a, b)
	}
	return strings.Contains(b, a)
}

// levenshtein computes the edit distance with the classic two-row DP.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
