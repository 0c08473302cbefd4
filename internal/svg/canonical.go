package svg

import (
	"strconv"
	"strings"
)

// CanonicalText converts a shape's inner markup into the editable form.
// Styled sub-spans are carried verbatim, tags and attributes included;
// plain segments have their entities decoded, except that '<' and '&'
// stay as &lt; and &amp;. The transform is the inverse of RebuildInner
// over valid input.
func CanonicalText(inner string) string {
	var b strings.Builder
	b.Grow(len(inner))
	i := 0
	for i < len(inner) {
		c := inner[i]
		if c == '<' {
			if end, ok := spanEnd(inner, i); ok {
				b.WriteString(inner[i:end])
				i = end
				continue
			}
			// Not a recognizable span; carry the byte through. Parse
			// already guaranteed well-formedness for fetched markup.
			b.WriteByte(c)
			i++
			continue
		}
		if c == '&' {
			if decoded, n := decodeEntity(inner[i:]); n > 0 {
				// A literal '<' would read as a span start on rebuild,
				// and a literal '&' could merge with following bytes
				// into a different entity, so both stay in entity form.
				switch decoded {
				case "<":
					decoded = "&lt;"
				case "&":
					decoded = "&amp;"
				}
				b.WriteString(decoded)
				i += n
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// RebuildInner converts canonical editable text back into inner markup.
// Styled spans pass through verbatim; every other character is escaped
// plain text. Any '<' that does not open a well-formed span fails the
// grammar with a *ValidationError naming the shape.
func RebuildInner(shapeID, canonical string) (string, error) {
	var b strings.Builder
	b.Grow(len(canonical))
	i := 0
	for i < len(canonical) {
		c := canonical[i]
		if c == '<' {
			end, ok := spanEnd(canonical, i)
			if !ok {
				return "", &ValidationError{ShapeID: shapeID, Offset: i, Reason: "malformed styled span"}
			}
			b.WriteString(canonical[i:end])
			i = end
			continue
		}
		switch c {
		case '&':
			if strings.HasPrefix(canonical[i:], "&lt;") {
				b.WriteString("&lt;")
				i += 4
				continue
			}
			if strings.HasPrefix(canonical[i:], "&amp;") {
				b.WriteString("&amp;")
				i += 5
				continue
			}
			b.WriteString("&amp;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), nil
}

// EscapeText escapes plain text for direct embedding in markup.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeText returns s with markup-significant characters replaced by
// entities. UnescapeText(EscapeText(s)) == s for every s.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// UnescapeText decodes the entities EscapeText produces, plus numeric
// character references.
func UnescapeText(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == '&' {
			if decoded, n := decodeEntity(s[i:]); n > 0 {
				b.WriteString(decoded)
				i += n
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// SplitNewText splits freshly authored text into per-shape segments.
// Three consecutive line breaks delimit separate shapes; blank segments
// are dropped. This applies only to newly composed text, never to text
// parsed from existing shapes.
func SplitNewText(text string) []string {
	parts := strings.Split(text, "\n\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// spanEnd scans one styled span starting at '<'. Nested spans are
// allowed as long as every tag closes in order.
func spanEnd(src string, start int) (int, bool) {
	name, _, selfClosing, end, err := parseTag(src, start)
	if err != nil {
		return 0, false
	}
	if selfClosing {
		return end, true
	}
	i := end
	for i < len(src) {
		if src[i] != '<' {
			i++
			continue
		}
		if strings.HasPrefix(src[i:], "</") {
			gt := strings.IndexByte(src[i:], '>')
			if gt < 0 {
				return 0, false
			}
			if strings.TrimSpace(src[i+2:i+gt]) != name {
				return 0, false
			}
			return i + gt + 1, true
		}
		sub, ok := spanEnd(src, i)
		if !ok {
			return 0, false
		}
		i = sub
	}
	return 0, false
}

// decodeEntity decodes one entity at the head of s, returning the
// decoded text and the number of source bytes consumed. n == 0 means no
// entity was recognized.
func decodeEntity(s string) (string, int) {
	semi := strings.IndexByte(s, ';')
	if semi < 2 || semi > 10 {
		return "", 0
	}
	body := s[1:semi]
	switch body {
	case "amp":
		return "&", semi + 1
	case "lt":
		return "<", semi + 1
	case "gt":
		return ">", semi + 1
	case "quot":
		return `"`, semi + 1
	case "apos":
		return "'", semi + 1
	}
	if strings.HasPrefix(body, "#") {
		digits := body[1:]
		base := 10
		if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
			digits = digits[1:]
			base = 16
		}
		code, err := strconv.ParseUint(digits, base, 32)
		if err != nil || code == 0 {
			return "", 0
		}
		return string(rune(code)), semi + 1
	}
	return "", 0
}
