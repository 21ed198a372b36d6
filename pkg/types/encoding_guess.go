package types

// GuessSource tells where a candidate encoding came from.
type GuessSource string

const (
	// SourceDetector is the statistical charset detector's suggestion.
	SourceDetector GuessSource = "detector"
	// SourceFallback is an entry of the ordered fallback list.
	SourceFallback GuessSource = "fallback"
	// SourceLenient is the final decode with replacement characters.
	SourceLenient GuessSource = "lenient"
)

// EncodingGuess records one decode attempt for a single file.
type EncodingGuess struct {
	Encoding   string      `json:"encoding"`
	Confidence int         `json:"confidence"` // 0-100, detector guesses only
	Source     GuessSource `json:"source"`
	OK         bool        `json:"ok"`
}
