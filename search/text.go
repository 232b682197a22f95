package search

import "strings"

// Stop words ignored when matching query terms verbatim
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "about": true, "new": true,
}

// terms splits text into lowercased words without surrounding punctuation,
// dropping stop words.
func terms(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// containsAllTerms reports whether every query term appears in document.
// An empty term list never matches.
func containsAllTerms(document string, queryTerms []string) bool {
	if len(queryTerms) == 0 {
		return false
	}
	docTerms := make(map[string]bool)
	for _, word := range terms(document) {
		docTerms[word] = true
	}
	for _, term := range queryTerms {
		if !docTerms[term] {
			return false
		}
	}
	return true
}
