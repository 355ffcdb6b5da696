// internal/sentiment/lexicon.go
package sentiment

// defaultLexicon holds token valences on the VADER -4..+4 scale. It is a
// trimmed hand-picked subset tuned for short social-media messages.
var defaultLexicon = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "awesome": 3.1, "amazing": 2.8, "excellent": 2.7,
	"fantastic": 2.6, "wonderful": 2.7, "perfect": 2.7, "best": 3.2, "love": 3.2,
	"loved": 2.9, "like": 1.5, "likes": 1.5, "liked": 1.8, "happy": 2.7,
	"glad": 2.0, "thanks": 1.9, "thank": 1.5, "thankful": 2.1, "grateful": 2.3,
	"appreciate": 1.9, "appreciated": 2.0, "nice": 1.8, "cool": 1.3, "fun": 2.3,
	"beautiful": 2.9, "helpful": 1.9, "friendly": 2.2, "fast": 1.1, "quick": 1.1,
	"easy": 1.9, "recommend": 1.6, "recommended": 1.9, "impressed": 2.2,
	"impressive": 2.3, "satisfied": 2.0, "pleased": 2.2, "delighted": 2.9,
	"superb": 3.0, "brilliant": 2.8, "outstanding": 3.1, "win": 2.4, "winner": 2.8,
	"yes": 1.1, "wow": 2.8, "congrats": 2.4, "congratulations": 2.7, "smooth": 1.4,
	"reliable": 1.9, "quality": 1.6, "fresh": 1.3, "better": 1.9, "enjoy": 2.2,
	"enjoyed": 2.3, "stunning": 2.9, "gorgeous": 2.9,

	// negative
	"bad": -2.5, "terrible": -3.0, "horrible": -2.9, "awful": -2.9, "worst": -3.1,
	"hate": -2.7, "hated": -2.8, "poor": -2.1, "disappointed": -2.3,
	"disappointing": -2.4, "disappointment": -2.4, "broken": -1.9, "broke": -1.8,
	"useless": -2.2, "slow": -1.2, "late": -1.3, "delayed": -1.4, "problem": -1.7,
	"problems": -1.8, "issue": -1.3, "issues": -1.5, "wrong": -1.8, "fail": -2.3,
	"failed": -2.3, "failure": -2.5, "scam": -2.9, "fraud": -3.0, "fake": -2.1,
	"angry": -2.3, "upset": -1.9, "annoyed": -1.9, "annoying": -2.0, "rude": -2.3,
	"waste": -1.9, "wasted": -2.0, "refund": -0.9, "complaint": -1.6, "ugly": -2.4,
	"dirty": -1.9, "damaged": -1.9, "missing": -1.4, "cheap": -1.0,
	"unhappy": -2.3, "unacceptable": -2.5, "ignored": -1.8, "ridiculous": -2.1,
	"disgusting": -2.9, "sad": -2.1, "sorry": -0.4,
}

// defaultBoosters increase (or dampen) the valence of the word they precede.
var defaultBoosters = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.293, "absolutely": 0.293,
	"so": 0.293, "super": 0.293, "totally": 0.293, "incredibly": 0.293,
	"slightly": -0.293, "somewhat": -0.293, "kinda": -0.293, "barely": -0.293,
}
