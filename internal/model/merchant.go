package model

import "strings"

// merchantSuffixes are corporate suffixes dropped from display names.
var merchantSuffixes = []string{
	" Llc",
	" Inc",
	" Corp",
	" Corporation",
	" Company",
	" Co",
	" Ltd",
	" Limited",
}

// CleanMerchantName standardizes a raw transaction description into a display
// name: title case, trailing reference numbers and corporate suffixes removed.
func CleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// "MERCHANT 123456789": a long all-digit tail is a reference number
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}
	name = strings.Join(words, " ")

	changed := true
	for changed {
		changed = false
		for _, suffix := range merchantSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}
