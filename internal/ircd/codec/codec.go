// Package codec frames a bidirectional byte stream into tagged IRC
// messages, per spec §4.1: optional @tag-block, optional :source
// prefix, command verb, middle parameters, optional trailing
// parameter. Grounded on the grammar described in
// original_source/modules/spanningtree/treesocket1.cpp (LF-delimited,
// CR stripped, NUL kills the link) and on the teacher's preference
// for small, allocation-light parsers (see meshage/message.go's
// String(), which builds lines by hand rather than via reflection).
package codec

import (
	"errors"
	"strings"
)

// Message is one decoded IRC line.
type Message struct {
	Tags    map[string]string // decoded tag-block, nil if none present
	Source  string            // prefix with leading ':' stripped; empty if absent
	Command string            // verb, upper-cased
	Params  []string          // middle parameters, in order
	Trailing string           // trailing parameter; "" and HasTrailing=false if absent
	HasTrailing bool
}

// ErrEmbeddedNUL is returned by Decode when a line contains a NUL byte.
// Per spec §4.1 the link must be torn down with an ERROR message when
// this occurs; Decode itself only reports the condition.
var ErrEmbeddedNUL = errors.New("codec: embedded NUL byte")

// AllParams returns the full parameter list, including the trailing
// parameter (if present) as the final element — the shape most
// command handlers want.
func (m *Message) AllParams() []string {
	if !m.HasTrailing {
		return m.Params
	}
	out := make([]string, 0, len(m.Params)+1)
	out = append(out, m.Params...)
	out = append(out, m.Trailing)
	return out
}

// Decode parses one LF-delimited line (CR already stripped by the
// caller's reader, see link.Socket.readLines). Empty lines decode to a
// nil Message with no error (spec: "empty lines are ignored").
func Decode(line string) (*Message, error) {
	if strings.IndexByte(line, 0) >= 0 {
		return nil, ErrEmbeddedNUL
	}
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil, nil
	}

	m := &Message{}
	rest := line

	if strings.HasPrefix(rest, "@") {
		sp := strings.IndexByte(rest, ' ')
		var tagBlock string
		if sp < 0 {
			tagBlock = rest[1:]
			rest = ""
		} else {
			tagBlock = rest[1:sp]
			rest = strings.TrimLeft(rest[sp+1:], " ")
		}
		m.Tags = decodeTags(tagBlock)
	}

	if strings.HasPrefix(rest, ":") {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			m.Source = rest[1:]
			rest = ""
		} else {
			m.Source = rest[1:sp]
			rest = strings.TrimLeft(rest[sp+1:], " ")
		}
	}

	// command verb
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		m.Command = strings.ToUpper(rest)
		return m, nil
	}
	m.Command = strings.ToUpper(rest[:sp])
	rest = rest[sp+1:]

	for rest != "" {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if strings.HasPrefix(rest, ":") {
			m.Trailing = rest[1:]
			m.HasTrailing = true
			break
		}
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			m.Params = append(m.Params, rest)
			break
		}
		m.Params = append(m.Params, rest[:sp])
		rest = rest[sp+1:]
	}

	return m, nil
}

var tagEscapes = strings.NewReplacer(
	`\s`, " ",
	`\:`, ";",
	`\\`, `\`,
	`\r`, "\r",
	`\n`, "\n",
)

func decodeTags(block string) map[string]string {
	if block == "" {
		return nil
	}
	tags := make(map[string]string)
	for _, kv := range strings.Split(block, ";") {
		if kv == "" {
			continue
		}
		if eq := strings.IndexByte(kv, '='); eq >= 0 {
			tags[kv[:eq]] = tagEscapes.Replace(kv[eq+1:])
		} else {
			tags[kv] = ""
		}
	}
	return tags
}

var tagUnescapes = strings.NewReplacer(
	`\`, `\\`,
	" ", `\s`,
	";", `\:`,
	"\r", `\r`,
	"\n", `\n`,
)

func encodeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for k, v := range tags {
		if v == "" {
			parts = append(parts, k)
		} else {
			parts = append(parts, k+"="+tagUnescapes.Replace(v))
		}
	}
	return "@" + strings.Join(parts, ";") + " "
}

// Encode serializes m back into a wire line (without trailing LF).
func Encode(m *Message) string {
	var b strings.Builder
	b.WriteString(encodeTags(m.Tags))
	if m.Source != "" {
		b.WriteByte(':')
		b.WriteString(m.Source)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for _, p := range m.Params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	if m.HasTrailing {
		b.WriteString(" :")
		b.WriteString(m.Trailing)
	}
	return b.String()
}
