// internal/sentiment/analyzer.go
package sentiment

import (
	"math"
	"strings"

	"github.com/user/metareply/internal/types"
)

// Analyzer is a small VADER-style lexicon classifier. Token valences are
// summed (with negation flips and booster adjustment) and squashed into a
// compound score in [-1, 1]. Text scores Positive above the 0.25 threshold;
// everything else, neutral included, is Negative so it routes to the more
// careful default responses.
type Analyzer struct {
	lexicon  map[string]float64
	boosters map[string]float64
}

const (
	// normalization constant from the VADER paper
	alpha             = 15.0
	positiveThreshold = 0.25
	negationDampen    = -0.74
)

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "cannot": true,
	"cant": true, "dont": true, "doesnt": true, "didnt": true, "wont": true,
	"isnt": true, "wasnt": true, "arent": true, "werent": true, "hardly": true,
}

// NewAnalyzer builds an analyzer over the built-in lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		lexicon:  defaultLexicon,
		boosters: defaultBoosters,
	}
}

// Classify scores the text and maps it to a sentiment.
func (a *Analyzer) Classify(text string) types.Sentiment {
	if a.Compound(text) > positiveThreshold {
		return types.SentimentPositive
	}
	return types.SentimentNegative
}

// Compound returns the normalized valence sum for the text.
func (a *Analyzer) Compound(text string) float64 {
	tokens := tokenize(text)

	var sum float64
	var boost float64
	negated := false

	for _, tok := range tokens {
		if negations[tok] {
			negated = true
			continue
		}
		if b, ok := a.boosters[tok]; ok {
			boost += b
			continue
		}

		valence, ok := a.lexicon[tok]
		if !ok {
			// a plain word breaks the negation/booster chain
			negated = false
			boost = 0
			continue
		}
		if valence > 0 {
			valence += boost
		} else if valence < 0 {
			valence -= boost
		}
		if negated {
			valence *= negationDampen
		}
		sum += valence
		negated = false
		boost = 0
	}

	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+alpha)
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, f)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
