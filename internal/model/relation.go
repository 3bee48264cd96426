package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifier is a single name segment as written by the caller.
type Identifier struct {
	Value  string
	Quoted bool
}

// Relation is a schema-qualified table or view. An empty Schema means the
// engine's current schema.
type Relation struct {
	Schema string
	Name   string
}

func (r Relation) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// ParseIdentifiers splits a dotted name into its segments. Segments enclosed
// in double quotes may contain dots and whitespace, and a doubled quote inside
// them stands for a literal quote.
func ParseIdentifiers(raw string) ([]Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}

	var (
		parts   []Identifier
		current strings.Builder
		quoted  bool
		inQuote bool
	)
	flush := func() error {
		value := current.String()
		if !quoted {
			value = strings.TrimSpace(value)
		}
		if value == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidIdentifier, raw)
		}
		if !quoted && strings.IndexFunc(value, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: unquoted segment %q contains whitespace", ErrInvalidIdentifier, value)
		}
		parts = append(parts, Identifier{Value: value, Quoted: quoted})
		current.Reset()
		quoted = false
		return nil
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuote && r == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuote = false
		case inQuote:
			current.WriteRune(r)
		case r == '"':
			if current.Len() > 0 {
				return nil, fmt.Errorf("%w: unexpected quote in %q", ErrInvalidIdentifier, raw)
			}
			inQuote, quoted = true, true
		case r == '.':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			if quoted {
				return nil, fmt.Errorf("%w: characters after closing quote in %q", ErrInvalidIdentifier, raw)
			}
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidIdentifier, raw)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}
