package feed

import (
	"strings"

	"stravatools/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Predicate selects activities out of a Log.
type Predicate func(Activity) bool

// negatable splits a leading '-' off a pattern.
func negatable(pattern string) (string, bool) {
	if strings.HasPrefix(pattern, "-") {
		return pattern[1:], true
	}
	return pattern, false
}

func patternMatches(pattern string, field func(Activity) string) Predicate {
	pattern, negate := negatable(pattern)
	if pattern == "" {
		return func(Activity) bool { return true }
	}
	return func(a Activity) bool {
		return textutil.MatchName(field(a), pattern) != negate
	}
}

// AthleteMatches keeps activities whose athlete contains `pattern`, ignoring
// case and whitespace. A leading '-' keeps the others instead. An empty
// pattern matches everything.
func AthleteMatches(pattern string) Predicate {
	return patternMatches(pattern, func(a Activity) string { return a.Athlete })
}

// TitleMatches is AthleteMatches for titles.
func TitleMatches(pattern string) Predicate {
	return patternMatches(pattern, func(a Activity) string { return a.Title })
}

func KudoGiven(kudoed bool) Predicate {
	return func(a Activity) bool { return a.Kudoed == kudoed }
}

// AthleteSimilar keeps activities whose athlete has a Jaro-Winkler similarity
// of at least `threshold` (0 to 1) with `name`.
func AthleteSimilar(name string, threshold float64) Predicate {
	name = textutil.NormalizeName(name)
	return func(a Activity) bool {
		return matchr.JaroWinkler(textutil.NormalizeName(a.Athlete), name, false) >= threshold
	}
}

// All is the conjunction of `preds`, nil entries are ignored.
func All(preds ...Predicate) Predicate {
	return func(a Activity) bool {
		for _, pred := range preds {
			if pred != nil && !pred(a) {
				return false
			}
		}
		return true
	}
}
