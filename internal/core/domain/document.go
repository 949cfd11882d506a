package domain

import "strings"

// Document is one retrievable chunk of policy text. Score is zero until a
// retrieval or ranking stage sets it; stored documents carry no score.
type Document struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Score   float64        `json:"score"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (d Document) Title() string {
	if d.Meta == nil {
		return ""
	}
	title, _ := d.Meta["title"].(string)
	return title
}

// Excerpt returns a quoted snippet of the content, truncated to at most
// limit runes with a trailing ellipsis.
func (d Document) Excerpt(limit int) string {
	content := strings.TrimSpace(d.Content)
	if limit <= 0 || len([]rune(content)) <= limit {
		return `"` + content + `"`
	}
	return `"` + string([]rune(content)[:limit]) + `..."`
}

// Source identifies a document an answer was grounded in.
type Source struct {
	Title       string  `json:"title"`
	Score       float64 `json:"score,omitempty"`
	TextExcerpt string  `json:"text_excerpt"`
}

// Answer is the user-facing response to a policy question.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}
