package util

import (
	"strings"

	"github.com/gosimple/slug"
)

const tokenPunctuation = ".,!?;:()[]\"'"

// ExtractMentions extracts @username mentions from text content
// Returns a slice of unique usernames (lowercase, without @ symbol)
func ExtractMentions(content string) []string {
	var mentions []string
	words := strings.Fields(content)
	seen := make(map[string]bool)

	for _, word := range words {
		word = strings.TrimLeft(word, tokenPunctuation)
		if strings.HasPrefix(word, "@") && len(word) > 1 {
			// Clean the username (remove trailing punctuation)
			username := strings.TrimPrefix(word, "@")
			username = strings.TrimRight(username, tokenPunctuation)
			username = strings.ToLower(username)

			if !seen[username] && len(username) >= 3 && len(username) <= 30 {
				seen[username] = true
				mentions = append(mentions, username)
			}
		}
	}
	return mentions
}

// ExtractHashtags extracts #tag tokens from text content in order of
// appearance, normalised with NormalizeTag and deduplicated
func ExtractHashtags(content string) []string {
	var tags []string
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		word = strings.TrimLeft(word, tokenPunctuation)
		if !strings.HasPrefix(word, "#") || len(word) < 2 {
			continue
		}
		tag := NormalizeTag(word)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeTag turns "#Sci Fi!" style input into the stored tag form
func NormalizeTag(tag string) string {
	tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
	tag = strings.TrimRight(tag, tokenPunctuation)
	if tag == "" {
		return ""
	}
	normalized := slug.Make(tag)
	if len(normalized) > 100 {
		normalized = normalized[:100]
	}
	return normalized
}
