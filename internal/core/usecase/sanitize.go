package usecase

import (
	"regexp"
	"strings"
)

// maxQueryLength is the hard cap on cleaned query length. Anything longer
// is served the fixed invalid-query response rather than reaching the
// retrieval pipeline or the generative model.
const maxQueryLength = 500

var (
	disallowedRunes = regexp.MustCompile(`[^A-Za-z0-9\s\-.?',"]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	fullStopRuns    = regexp.MustCompile(`\.{2,}`)
	commaRuns       = regexp.MustCompile(`,{2,}`)
	questionRuns    = regexp.MustCompile(`\?{2,}`)
	apostropheRuns  = regexp.MustCompile(`'{2,}`)
	quoteRuns       = regexp.MustCompile(`"{2,}`)

	// Four letters each followed by a separator, e.g. "i g n o r e ...".
	// Letter-spacing is a common trick for sneaking instructions past
	// content filters, so such queries are rejected outright.
	letterSpacing = regexp.MustCompile(`^[A-Za-z][\s\-.?',][A-Za-z][\s\-.?',][A-Za-z][\s\-.?',][A-Za-z][\s\-.?',]`)
)

// CleanQuery normalises user input before it is handed to ranking and
// generation: ampersands become "and", characters outside
// letters/digits/whitespace/-.?'," are stripped, runs of whitespace and
// duplicated punctuation collapse, and the result is trimmed. Cleaning is
// cosmetic only and idempotent.
func CleanQuery(query string) string {
	query = strings.ReplaceAll(query, "&", "and")
	query = disallowedRunes.ReplaceAllString(query, "")
	query = whitespaceRuns.ReplaceAllString(query, " ")
	query = fullStopRuns.ReplaceAllString(query, ".")
	query = commaRuns.ReplaceAllString(query, ",")
	query = questionRuns.ReplaceAllString(query, "?")
	query = apostropheRuns.ReplaceAllString(query, "'")
	query = quoteRuns.ReplaceAllString(query, `"`)
	return strings.TrimSpace(query)
}

// DetectBadQuery flags queries that must not be passed on: over-long
// input and letter-spaced obfuscation. It expects already-cleaned text.
func DetectBadQuery(query string) bool {
	if len(query) > maxQueryLength {
		return true
	}
	return letterSpacing.MatchString(query)
}
