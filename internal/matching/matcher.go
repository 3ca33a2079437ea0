// Package matching associates extracted PDF text with roster students.
// Matching is a heuristic: a normalized name-token or LRN hit is treated as
// sufficient evidence of identity, so ambiguous hits are flagged for review
// rather than silently assigned.
package matching

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases, replaces every non-alphanumeric run with a single
// space, and trims. All matching happens over normalized text.
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)
	spaced := nonAlnum.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(spaced)
}

// fuzzyPattern builds a containment pattern tolerating stray whitespace
// inside a token: PDF extraction often splits names character by character,
// so "patty" must match "p a t t y".
func fuzzyPattern(token string) *regexp.Regexp {
	chars := strings.Split(token, "")
	for i, ch := range chars {
		chars[i] = regexp.QuoteMeta(ch)
	}
	return regexp.MustCompile(strings.Join(chars, `\s*`))
}

// Result reports the outcome of matching one document's text.
type Result struct {
	Student *models.Student
	// Candidates holds every roster entry that matched. The first entry is
	// the one assigned, preserving the portal's first-match behaviour.
	Candidates []models.Student
	// Ambiguous is set when more than one student matched; the upload review
	// screen surfaces these instead of trusting the assignment.
	Ambiguous bool
}

// Matcher matches extracted document text against a student roster.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher constructs a matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Match scans the roster in order and returns the first student whose
// normalized first AND last name both fuzzy-match the text, or whose LRN
// appears as a plain substring (no gap tolerance for digits).
func (m *Matcher) Match(extractedText string, roster []models.Student) Result {
	text := Normalize(extractedText)
	if text == "" {
		return Result{}
	}

	var candidates []models.Student
	for _, student := range roster {
		if m.matches(text, student) {
			candidates = append(candidates, student)
		}
	}

	if len(candidates) == 0 {
		return Result{}
	}

	result := Result{
		Student:    &candidates[0],
		Candidates: candidates,
		Ambiguous:  len(candidates) > 1,
	}
	if result.Ambiguous {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.FullName()
		}
		m.logger.Warn("ambiguous document match, assigning first candidate",
			zap.Strings("candidates", names))
	}
	return result
}

func (m *Matcher) matches(normalizedText string, student models.Student) bool {
	first := Normalize(student.FirstName)
	last := Normalize(student.LastName)
	if first != "" && last != "" {
		if fuzzyPattern(first).MatchString(normalizedText) && fuzzyPattern(last).MatchString(normalizedText) {
			return true
		}
	}

	lrn := strings.ToLower(strings.TrimSpace(student.LRN))
	if lrn != "" && strings.Contains(normalizedText, lrn) {
		return true
	}
	return false
}
