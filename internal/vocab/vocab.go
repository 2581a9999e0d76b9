package vocab

import (
	"strings"

	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
)

// Normalizer is the single normalization rule shared by vocabulary loading
// and counting. Case folding uses strings.ToLower, the Unicode simple
// lower-case mapping; no other transformation is applied.
type Normalizer struct {
	CaseInsensitive bool `json:"case_insensitive"`
}

// Normalize applies the rule to one token.
func (n Normalizer) Normalize(token string) string {
	if n.CaseInsensitive {
		return strings.ToLower(token)
	}
	return token
}

// Load reads the reference file and returns its distinct normalized words.
func Load(src source.Source, path string, norm Normalizer) (*types.Vocabulary, error) {
	var words []string
	seen := make(map[string]struct{})

	err := source.ReadWords(src, path, func(word string) error {
		tok := norm.Normalize(word)
		if _, ok := seen[tok]; !ok {
			seen[tok] = struct{}{}
			words = append(words, tok)
		}
		return nil
	})
	if err != nil {
		return nil, &types.VocabularyError{Path: path, Err: err}
	}

	return types.NewVocabulary(words...), nil
}
