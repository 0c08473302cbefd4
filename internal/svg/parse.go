package svg

import (
	"fmt"
	"strings"
)

// Attr is a single attribute on a text element, in source order. The
// attribute bag is opaque to the editor and passes through unmodified.
type Attr struct {
	Name  string
	Value string
}

// Shape is one text element extracted from a layer fragment.
type Shape struct {
	ID    string
	Attrs []Attr
	Inner string
}

// Fragment is a parsed layer fragment. The raw markup and per-element
// byte offsets are retained so the synthesizer can splice edits without
// disturbing untouched bytes.
type Fragment struct {
	raw    string
	root   span
	shapes []Shape
	spans  []span
}

type span struct {
	name        string
	outerStart  int
	outerEnd    int
	innerStart  int
	innerEnd    int
	selfClosing bool
}

// Raw returns the original fragment markup.
func (f *Fragment) Raw() string { return f.raw }

// Shapes returns the text elements in document order.
func (f *Fragment) Shapes() []Shape {
	out := make([]Shape, len(f.shapes))
	copy(out, f.shapes)
	return out
}

func (f *Fragment) indexOf(id string) int {
	for i := range f.shapes {
		if f.shapes[i].ID == id {
			return i
		}
	}
	return -1
}

// Parse extracts the ordered text elements from one layer's raw markup
// fragment. A fragment with zero text elements is valid. Anything that
// violates the restricted grammar yields a *ParseError.
func Parse(fragment string) (*Fragment, error) {
	f := &Fragment{raw: fragment}

	type openElem struct {
		name    string
		textIdx int // index into f.spans for tracked text elements, else -1
	}
	var stack []openElem
	rootSeen := false
	rootClosed := false
	seen := make(map[string]bool)

	pos := 0
	for pos < len(fragment) {
		c := fragment[pos]
		if c != '<' {
			if !isSpace(c) {
				if !rootSeen {
					return nil, &ParseError{Offset: pos, Reason: "text before root element"}
				}
				if rootClosed {
					return nil, &ParseError{Offset: pos, Reason: "content after root element"}
				}
			}
			pos++
			continue
		}

		rest := fragment[pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest[4:], "-->")
			if end < 0 {
				return nil, &ParseError{Offset: pos, Reason: "unterminated comment"}
			}
			pos += 4 + end + 3

		case strings.HasPrefix(rest, "<![CDATA["):
			end := strings.Index(rest[9:], "]]>")
			if end < 0 {
				return nil, &ParseError{Offset: pos, Reason: "unterminated CDATA section"}
			}
			pos += 9 + end + 3

		case strings.HasPrefix(rest, "<?"):
			end := strings.Index(rest[2:], "?>")
			if end < 0 {
				return nil, &ParseError{Offset: pos, Reason: "unterminated processing instruction"}
			}
			pos += 2 + end + 2

		case strings.HasPrefix(rest, "<!"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, &ParseError{Offset: pos, Reason: "unterminated declaration"}
			}
			pos += end + 1

		case strings.HasPrefix(rest, "</"):
			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				return nil, &ParseError{Offset: pos, Reason: "unterminated close tag"}
			}
			name := strings.TrimSpace(rest[2:gt])
			if len(stack) == 0 {
				return nil, &ParseError{Offset: pos, Reason: "unexpected close tag </" + name + ">"}
			}
			top := stack[len(stack)-1]
			if top.name != name {
				return nil, &ParseError{
					Offset: pos,
					Reason: fmt.Sprintf("close tag </%s> does not match <%s>", name, top.name),
				}
			}
			if top.textIdx >= 0 {
				sp := &f.spans[top.textIdx]
				sp.innerEnd = pos
				sp.outerEnd = pos + gt + 1
				f.shapes[top.textIdx].Inner = fragment[sp.innerStart:sp.innerEnd]
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				rootClosed = true
				f.root.innerEnd = pos
				f.root.outerEnd = pos + gt + 1
			}
			pos += gt + 1

		default:
			start := pos
			name, attrs, selfClosing, end, err := parseTag(fragment, pos)
			if err != nil {
				return nil, err
			}
			if rootClosed {
				return nil, &ParseError{Offset: start, Reason: "multiple root elements"}
			}

			textIdx := -1
			if localName(name) == "text" {
				if len(stack) == 0 {
					return nil, &ParseError{Offset: start, Reason: "text element outside container"}
				}
				for _, o := range stack {
					if o.textIdx >= 0 {
						return nil, &ParseError{Offset: start, Reason: "nested text element"}
					}
				}
				id := ""
				for _, a := range attrs {
					if a.Name == "id" {
						id = a.Value
					}
				}
				if id == "" {
					return nil, &ParseError{Offset: start, Reason: "text element missing id"}
				}
				if seen[id] {
					return nil, &ParseError{Offset: start, Reason: fmt.Sprintf("duplicate shape id %q", id)}
				}
				seen[id] = true
				textIdx = len(f.spans)
				sp := span{name: name, outerStart: start, innerStart: end, selfClosing: selfClosing}
				if selfClosing {
					sp.outerEnd = end
					sp.innerEnd = end
				}
				f.spans = append(f.spans, sp)
				f.shapes = append(f.shapes, Shape{ID: id, Attrs: attrs})
			}

			if !rootSeen {
				rootSeen = true
				f.root = span{name: name, outerStart: start, innerStart: end, selfClosing: selfClosing}
				if selfClosing {
					rootClosed = true
					f.root.outerEnd = end
					f.root.innerEnd = end
				}
			}
			if !selfClosing {
				stack = append(stack, openElem{name: name, textIdx: textIdx})
			}
			pos = end
		}
	}

	if !rootSeen {
		return nil, &ParseError{Offset: 0, Reason: "empty fragment"}
	}
	if len(stack) > 0 {
		return nil, &ParseError{
			Offset: len(fragment),
			Reason: "unclosed element <" + stack[len(stack)-1].name + ">",
		}
	}
	return f, nil
}

// parseTag scans an open tag starting at '<'. end is the offset just
// past the closing '>'.
func parseTag(src string, start int) (name string, attrs []Attr, selfClosing bool, end int, err error) {
	i := start + 1
	j := i
	for j < len(src) && isNameByte(src[j]) {
		j++
	}
	if j == i {
		return "", nil, false, 0, &ParseError{Offset: start, Reason: "malformed tag"}
	}
	name = src[i:j]
	i = j

	for {
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i >= len(src) {
			return "", nil, false, 0, &ParseError{Offset: start, Reason: "unterminated tag <" + name + ">"}
		}
		switch src[i] {
		case '>':
			return name, attrs, false, i + 1, nil
		case '/':
			if i+1 < len(src) && src[i+1] == '>' {
				return name, attrs, true, i + 2, nil
			}
			return "", nil, false, 0, &ParseError{Offset: i, Reason: "stray '/' in tag <" + name + ">"}
		}

		k := i
		for k < len(src) && isNameByte(src[k]) {
			k++
		}
		if k == i {
			return "", nil, false, 0, &ParseError{Offset: i, Reason: "malformed attribute in <" + name + ">"}
		}
		aname := src[i:k]
		i = k
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i >= len(src) || src[i] != '=' {
			return "", nil, false, 0, &ParseError{Offset: i, Reason: "attribute " + aname + " missing value"}
		}
		i++
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i >= len(src) || (src[i] != '"' && src[i] != '\'') {
			return "", nil, false, 0, &ParseError{Offset: i, Reason: "attribute " + aname + " value not quoted"}
		}
		quote := src[i]
		i++
		v := i
		for i < len(src) && src[i] != quote {
			i++
		}
		if i >= len(src) {
			return "", nil, false, 0, &ParseError{Offset: v, Reason: "unterminated value for attribute " + aname}
		}
		attrs = append(attrs, Attr{Name: aname, Value: src[v:i]})
		i++
	}
}

func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_', b == ':', b == '.', b == '-':
		return true
	}
	return false
}
