package engine

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Reply vocabularies
// ---------------------------------------------------------------------------

// cancelWords end any pending interaction.
var cancelWords = []string{"cancel", "stop", "nevermind", "never mind", "back", "exit", "/cancel"}

// confirmationPositiveWords are replies that mean "yes, proceed".
var confirmationPositiveWords = []string{
	"yes", "y", "ok", "okay", "confirm", "proceed",
	"go ahead", "go", "do it", "continue",
	"sure", "yep", "yup", "yeah", "affirmative",
}

// confirmationNegativeWords are replies that mean "no, cancel".
var confirmationNegativeWords = []string{
	"no", "n", "cancel", "abort", "stop", "nope",
	"nevermind", "never mind", "forget it", "nah", "don't", "dont",
}

// singleCandidateWords pick the only candidate of a one-item list.
var singleCandidateWords = []string{
	"yes", "y", "ok", "okay", "sure", "confirm", "delete", "do it",
	"go", "proceed", "yep", "yeah", "this one", "that one", "that", "it",
}

// cardinalWords count only when they are the whole reply or follow a
// marker such as "number", so "that one" is not read as the first item.
var cardinalWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var ordinalWords = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
	"fifth": 5, "5th": 5,
	"sixth": 6, "6th": 6,
	"seventh": 7, "7th": 7,
	"eighth": 8, "8th": 8,
	"ninth": 9, "9th": 9,
	"tenth": 10, "10th": 10,
	"last": -1,
}

var cardinalMarkers = map[string]bool{"number": true, "option": true, "#": true}

var digitsRe = regexp.MustCompile(`\d+`)

// normalizeReply lower-cases a reply and reduces punctuation and whitespace
// runs to single spaces, so "No, thanks!" reads as "no thanks".
func normalizeReply(text string) string {
	s := strings.ToLower(text)
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.Join(strings.FieldsFunc(s, isSeparator), " ")
}

// matchesWord reports whether the normalized reply is w or starts with w
// followed by a space.
func matchesWord(lower string, words []string) bool {
	for _, w := range words {
		if lower == w || strings.HasPrefix(lower, w+" ") {
			return true
		}
	}
	return false
}

// isCancel reports whether the whole reply is a cancel word. Used where the
// reply is otherwise taken verbatim, so "stop by the bakery" is not a cancel.
func isCancel(text string) bool {
	lower := normalizeReply(text)
	for _, w := range cancelWords {
		if lower == w {
			return true
		}
	}
	return false
}

// mentionsCancel reports whether any token of the reply is a cancel word.
// A selection reply carries no free text, so any cancel word counts.
func mentionsCancel(text string) bool {
	lower := normalizeReply(text)
	if strings.Contains(lower, "never mind") {
		return true
	}
	for _, tok := range strings.Fields(lower) {
		for _, w := range cancelWords {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(",.!?;:", r)
}

// resolveIndex turns a selection reply into a 1-based index against n
// candidates. It tries an explicit number first, then ordinals and
// standalone cardinal words, then (when allowAffirm is set and n is 1)
// affirmative words. The returned index
// is not range-checked; ok is false when nothing could be read.
func resolveIndex(text string, n int, allowAffirm bool) (idx int, ok bool) {
	lower := normalizeReply(text)
	if lower == "" {
		return 0, false
	}
	if m := digitsRe.FindString(lower); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil {
			// Too large for an int; still an index, and out of range.
			return n + 1, true
		}
		return v, true
	}
	toks := strings.Fields(lower)
	for i, tok := range toks {
		if v, found := ordinalWords[tok]; found {
			if v < 0 {
				return n, true
			}
			return v, true
		}
		if v, found := cardinalWords[strings.TrimPrefix(tok, "#")]; found {
			if len(toks) == 1 || (i > 0 && cardinalMarkers[toks[i-1]]) {
				return v, true
			}
		}
	}
	if allowAffirm && n == 1 && matchesWord(lower, singleCandidateWords) {
		return 1, true
	}
	return 0, false
}

type confirmation int

const (
	confirmUnclear confirmation = iota
	confirmYes
	confirmNo
)

// readConfirmation classifies a yes/no reply. Negative words win, so
// "no, don't do it" is a no.
func readConfirmation(text string) confirmation {
	lower := normalizeReply(text)
	switch {
	case matchesWord(lower, confirmationNegativeWords):
		return confirmNo
	case matchesWord(lower, confirmationPositiveWords):
		return confirmYes
	default:
		return confirmUnclear
	}
}
