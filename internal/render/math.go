package render

import "strings"

// PrepareMath rewrites TeX math so a Markdown renderer without math
// support shows it verbatim: $$...$$ and \[...\] blocks become ```latex
// fences and inline $...$ becomes a code span. Fenced code, code spans
// and escaped \$ are left alone.
func PrepareMath(src string) string {
	if !strings.ContainsAny(src, "$\\") {
		return src
	}
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	var fence string // open code fence marker, if any

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			out = append(out, line)
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if m := fenceMarker(trimmed); m != "" {
			fence = m
			out = append(out, line)
			continue
		}

		if body, ok := singleLineDisplay(trimmed); ok {
			out = append(out, "```latex", body, "```")
			continue
		}
		if closer := displayCloser(trimmed); closer != "" {
			end := -1
			for j := i + 1; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == closer {
					end = j
					break
				}
			}
			if end >= 0 {
				out = append(out, "```latex")
				out = append(out, lines[i+1:end]...)
				out = append(out, "```")
				i = end
				continue
			}
		}

		out = append(out, inlineMath(line))
	}
	return strings.Join(out, "\n")
}

func fenceMarker(trimmed string) string {
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			return m
		}
	}
	return ""
}

// displayCloser returns the line that ends a display block opened by
// trimmed, or "" when trimmed opens none.
func displayCloser(trimmed string) string {
	switch trimmed {
	case "$$":
		return "$$"
	case `\[`:
		return `\]`
	}
	return ""
}

func singleLineDisplay(trimmed string) (string, bool) {
	for _, d := range [][2]string{{"$$", "$$"}, {`\[`, `\]`}} {
		if len(trimmed) > len(d[0])+len(d[1]) && strings.HasPrefix(trimmed, d[0]) && strings.HasSuffix(trimmed, d[1]) {
			body := strings.TrimSpace(trimmed[len(d[0]) : len(trimmed)-len(d[1])])
			if body != "" && !strings.Contains(body, d[1]) {
				return body, true
			}
		}
	}
	return "", false
}

// inlineMath converts $...$ and $$...$$ spans within one line.
func inlineMath(line string) string {
	if !strings.Contains(line, "$") {
		return line
	}
	var b strings.Builder
	b.Grow(len(line) + 8)
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			b.WriteString(line[i : i+2])
			i += 2
		case c == '`':
			n := runLength(line, i, '`')
			end := strings.Index(line[i+n:], line[i:i+n])
			if end < 0 {
				b.WriteString(line[i:])
				return b.String()
			}
			stop := i + n + end + n
			b.WriteString(line[i:stop])
			i = stop
		case c == '$':
			delim := "$"
			if strings.HasPrefix(line[i:], "$$") {
				delim = "$$"
			}
			if body, next, ok := mathSpan(line, i, delim); ok && !strings.Contains(body, "`") {
				b.WriteString("`" + body + "`")
				i = next
				continue
			}
			b.WriteString(delim)
			i += len(delim)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// mathSpan finds the span opened by delim at line[i:]. The opener must be
// followed by a non-space and the closer preceded by one; a single $
// closer must not be followed by a digit, so "$5 and $6" stays text.
func mathSpan(line string, i int, delim string) (body string, next int, ok bool) {
	start := i + len(delim)
	if start >= len(line) || line[start] == ' ' || line[start] == '$' {
		return "", 0, false
	}
	for j := start + 1; j < len(line); j++ {
		if line[j] == '\\' {
			j++
			continue
		}
		if !strings.HasPrefix(line[j:], delim) {
			continue
		}
		if line[j-1] == ' ' {
			continue
		}
		after := j + len(delim)
		if delim == "$" && after < len(line) && (isDigit(line[after]) || line[after] == '$') {
			continue
		}
		return line[start:j], after, true
	}
	return "", 0, false
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
