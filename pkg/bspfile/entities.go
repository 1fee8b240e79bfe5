package bspfile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-lightbake/pkg/bsp"
)

// ErrEntitySyntax is returned for a malformed entity lump
var ErrEntitySyntax = errors.New("entity lump syntax error")

// ParseEntities splits the entity lump into key/value blocks. Later
// duplicates of a key overwrite earlier ones.
func ParseEntities(data string) ([]bsp.Entity, error) {
	lex := &entityLexer{data: data, line: 1}
	var ents []bsp.Entity

	for {
		tok, ok, err := lex.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return ents, nil
		}
		if tok != "{" {
			return nil, fmt.Errorf("%w: line %d: expected '{', got %q", ErrEntitySyntax, lex.line, tok)
		}

		ent := bsp.Entity{}
		for {
			key, ok, err := lex.next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: line %d: unexpected end of data", ErrEntitySyntax, lex.line)
			}
			if key == "}" {
				break
			}
			value, ok, err := lex.next()
			if err != nil {
				return nil, err
			}
			if !ok || value == "}" {
				return nil, fmt.Errorf("%w: line %d: key %q has no value", ErrEntitySyntax, lex.line, key)
			}
			ent[key] = value
		}
		ents = append(ents, ent)
	}
}

// FormatEntities writes entities back out. Classname comes first and the
// remaining keys are sorted so output is stable.
func FormatEntities(ents []bsp.Entity) string {
	var sb strings.Builder
	for _, e := range ents {
		sb.WriteString("{\n")
		if cn, ok := e["classname"]; ok {
			fmt.Fprintf(&sb, "\"classname\" \"%s\"\n", cn)
		}
		keys := make([]string, 0, len(e))
		for k := range e {
			if k != "classname" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\"%s\" \"%s\"\n", k, e[k])
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

type entityLexer struct {
	data string
	pos  int
	line int
}

// next returns the next token, skipping whitespace and // comments
func (l *entityLexer) next() (string, bool, error) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c <= ' ':
			l.pos++
		case strings.HasPrefix(l.data[l.pos:], "//"):
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
		case c == '{' || c == '}':
			l.pos++
			return string(c), true, nil
		case c == '"':
			end := strings.IndexByte(l.data[l.pos+1:], '"')
			if end < 0 {
				return "", false, fmt.Errorf("%w: line %d: unterminated string", ErrEntitySyntax, l.line)
			}
			tok := l.data[l.pos+1 : l.pos+1+end]
			l.line += strings.Count(tok, "\n")
			l.pos += end + 2
			return tok, true, nil
		default:
			start := l.pos
			for l.pos < len(l.data) && l.data[l.pos] > ' ' && l.data[l.pos] != '{' && l.data[l.pos] != '}' && l.data[l.pos] != '"' {
				l.pos++
			}
			return l.data[start:l.pos], true, nil
		}
	}
	return "", false, nil
}
