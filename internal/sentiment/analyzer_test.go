package sentiment

import (
	"testing"

	"github.com/user/metareply/internal/types"
)

func TestClassify(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name string
		text string
		want types.Sentiment
	}{
		{"compliment", "This is amazing, I love it!", types.SentimentPositive},
		{"thanks after service", "Great service!\nThanks!", types.SentimentPositive},
		{"boosted praise", "really great product", types.SentimentPositive},
		{"complaint", "This is terrible, worst purchase ever", types.SentimentNegative},
		{"broken product", "My order arrived broken and late", types.SentimentNegative},
		{"negated praise", "not good at all", types.SentimentNegative},
		{"negated strong praise", "this is never great", types.SentimentNegative},
		{"neutral", "When does the store open?", types.SentimentNegative},
		{"empty", "", types.SentimentNegative},
		{"emoji and punctuation stripped", "LOVE love LOVE!!! <3", types.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v (compound %.3f)", tt.text, got, tt.want, a.Compound(tt.text))
			}
		})
	}
}

func TestCompoundRange(t *testing.T) {
	a := NewAnalyzer()

	for _, text := range []string{
		"amazing wonderful excellent perfect best love",
		"terrible horrible awful worst hate scam",
		"plain words with no sentiment",
	} {
		c := a.Compound(text)
		if c < -1 || c > 1 {
			t.Errorf("Compound(%q) = %f, outside [-1, 1]", text, c)
		}
	}
}

func TestCompoundNeutralIsZero(t *testing.T) {
	a := NewAnalyzer()
	if c := a.Compound("where is my order"); c != 0 {
		t.Errorf("neutral text scored %f, want 0", c)
	}
}

func TestNegationFlipsValence(t *testing.T) {
	a := NewAnalyzer()

	plain := a.Compound("good")
	negated := a.Compound("not good")
	if plain <= 0 {
		t.Fatalf("baseline compound %f, want positive", plain)
	}
	if negated >= 0 {
		t.Errorf("negated compound %f, want negative", negated)
	}
}

func TestBoosterRaisesValence(t *testing.T) {
	a := NewAnalyzer()

	if a.Compound("very good") <= a.Compound("good") {
		t.Error("booster did not increase the compound score")
	}
	if a.Compound("slightly good") >= a.Compound("good") {
		t.Error("dampener did not decrease the compound score")
	}
}

func TestInterveningWordBreaksNegation(t *testing.T) {
	a := NewAnalyzer()

	// "not the product good": a plain token between negation and target
	// resets the chain, so "good" keeps its positive valence.
	chained := a.Compound("not good")
	broken := a.Compound("not the product good")
	if broken <= chained {
		t.Errorf("expected broken chain %f > chained %f", broken, chained)
	}
	if broken <= 0 {
		t.Errorf("broken chain compound %f, want positive", broken)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! It's GREAT-ish... 100%")
	want := []string{"hello", "world", "its", "greatish", "100"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
