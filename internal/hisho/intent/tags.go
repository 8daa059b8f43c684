package intent

import (
	"regexp"
	"slices"
	"strings"
)

// Tag grammar
//
//	tag   = "[SERVICE_ACTION:" ws NAME ws ( "|" pair )* "]"
//	pair  = ws key ws ":" ws value ws
//	value = text up to the next "|" or "]", optionally quoted with " or '
//
// The pair whose key is "action" names the verb; by convention it is first.
// Keys are case-folded, the verb is upper-cased, and the service name is
// matched case-insensitively.

const tagMarker = "SERVICE_ACTION"

var (
	tagRe        = regexp.MustCompile(`(?i)\[` + tagMarker + `:\s*([A-Za-z_]+)\s*(?:\|([^\]]*))?\]`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// DroppedTag describes a syntactically valid tag that ParseReply discarded.
type DroppedTag struct {
	Raw    string
	Reason string
}

// ParseReply extracts every action tag from a model reply. Tags naming a
// service outside enabled, or lacking an action verb, are dropped and
// reported in dropped. A reply without tags is a plain answer with no
// actions.
func ParseReply(reply string, enabled ServiceSet) (result TranslationResult, dropped []DroppedTag) {
	result.Source = SourceModel
	for _, m := range tagRe.FindAllStringSubmatch(reply, -1) {
		raw, name, body := m[0], m[1], m[2]

		service, known := ParseService(name)
		if !known || !enabled.Has(service) {
			dropped = append(dropped, DroppedTag{Raw: raw, Reason: "service not enabled: " + strings.ToLower(name)})
			continue
		}

		params := parsePairs(body)
		verb := strings.ToUpper(params["action"])
		delete(params, "action")
		if verb == "" {
			dropped = append(dropped, DroppedTag{Raw: raw, Reason: "missing action verb"})
			continue
		}

		result.Actions = append(result.Actions, ActionRequest{
			Service:    service,
			Action:     verb,
			Parameters: params,
		})
	}
	result.Text = StripTags(reply)
	return result, dropped
}

// StripTags removes every tag from text and collapses the blank lines and
// space runs left behind.
func StripTags(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func parsePairs(body string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(body, "|") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(unquote(key))
		if key == "" {
			continue
		}
		params[key] = unquote(value)
	}
	return params
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// RenderTag formats a in the tag grammar. Parameters are emitted in sorted
// key order after the verb. Characters that would break the grammar are
// replaced.
func RenderTag(a ActionRequest) string {
	var b strings.Builder
	b.WriteString("[" + tagMarker + ": ")
	b.WriteString(strings.ToUpper(string(a.Service)))
	b.WriteString(" | action: ")
	b.WriteString(a.Action)

	keys := make([]string, 0, len(a.Parameters))
	for k := range a.Parameters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(" | ")
		b.WriteString(k)
		b.WriteString(`: "`)
		b.WriteString(sanitizeValue(a.Parameters[k]))
		b.WriteString(`"`)
	}
	b.WriteString("]")
	return b.String()
}

var valueReplacer = strings.NewReplacer("|", "/", "]", ")", "[", "(", `"`, "'", "\n", " ")

func sanitizeValue(v string) string {
	return valueReplacer.Replace(v)
}
