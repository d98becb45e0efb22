package llm

import "strings"

// ParseClaims collects the text of every "CLAIM:" line, case-insensitively.
// Other lines are ignored.
func ParseClaims(content string) []string {
	var claims []string
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(t), "claim:") {
			continue
		}
		if claim := strings.TrimSpace(t[len("claim:"):]); claim != "" {
			claims = append(claims, claim)
		}
	}
	return claims
}

// ParseTermsAndClaims reads "- " bullets under CLAIMS: and SEARCH_TERMS:
// headers. Bullets before any header, and stray lines, are ignored.
func ParseTermsAndClaims(content string) (claims, terms []string) {
	section := ""
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "CLAIMS:"):
			section = "claims"
		case strings.HasPrefix(t, "SEARCH_TERMS:"):
			section = "terms"
		case strings.HasPrefix(t, "- "):
			val := strings.TrimSpace(t[2:])
			if val == "" {
				continue
			}
			switch section {
			case "claims":
				claims = append(claims, val)
			case "terms":
				terms = append(terms, val)
			}
		}
	}
	return claims, terms
}
