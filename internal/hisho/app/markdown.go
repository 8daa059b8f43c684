package app

import (
	"html"
	"strings"
)

// MarkdownToHTML renders the Markdown subset the engine produces for a
// Matrix org.matrix.custom.html body: **bold**, __underline__, _italic_,
// `code`, fenced code blocks and line breaks. Everything else is escaped.
func MarkdownToHTML(md string) string {
	var out strings.Builder
	inCode, needBreak := false, false
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			if inCode {
				out.WriteString("</code></pre>")
			} else {
				out.WriteString("<pre><code>")
			}
			inCode, needBreak = !inCode, false
			continue
		}
		if inCode {
			out.WriteString(html.EscapeString(line))
			out.WriteString("\n")
			continue
		}
		if needBreak {
			out.WriteString("<br/>")
		}
		out.WriteString(inline(html.EscapeString(line)))
		needBreak = true
	}
	if inCode {
		out.WriteString("</code></pre>")
	}
	return out.String()
}

func inline(s string) string {
	s = replaceDelimited(s, "`", "<code>", "</code>")
	s = replaceDelimited(s, "**", "<strong>", "</strong>")
	s = replaceDelimited(s, "__", "<u>", "</u>")
	return replaceDelimited(s, "_", "<em>", "</em>")
}

// replaceDelimited wraps each complete delim...delim pair. An unmatched
// opener is left as is. A single-character delimiter only opens at the start
// of a word, so snake_case names survive.
func replaceDelimited(s, delim, open, close string) string {
	var b strings.Builder
	for {
		start := indexOpener(s, delim)
		if start < 0 {
			break
		}
		end := strings.Index(s[start+len(delim):], delim)
		if end <= 0 {
			break
		}
		end += start + len(delim)
		b.WriteString(s[:start])
		b.WriteString(open)
		b.WriteString(s[start+len(delim) : end])
		b.WriteString(close)
		s = s[end+len(delim):]
	}
	b.WriteString(s)
	return b.String()
}

func indexOpener(s, delim string) int {
	if len(delim) > 1 || delim == "`" {
		return strings.Index(s, delim)
	}
	for i := 0; i < len(s); i++ {
		if strings.HasPrefix(s[i:], delim) && (i == 0 || s[i-1] == ' ' || s[i-1] == '(') {
			return i
		}
	}
	return -1
}
