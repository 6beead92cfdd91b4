package utils

import "strings"

// charsPerToken is the heuristic used to size insight prompts; no model
// tokenizer is consulted.
const charsPerToken = 4

// EstimateTokens approximates how many tokens text costs a chat model.
// Any non-empty text costs at least one.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return max(n/charsPerToken, 1)
}

// FitTokens shortens text to roughly budget tokens and reports whether it
// cut anything. The cut lands on the last line break inside the budget when
// there is one, so a summary never ends in the middle of a statistic line.
func FitTokens(text string, budget int) (string, bool) {
	if budget <= 0 {
		return "", text != ""
	}
	runes := []rune(text)
	limit := budget * charsPerToken
	if len(runes) <= limit {
		return text, false
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i+1]
	}
	return cut, true
}
