// Package address parses and resolves the `@<uuid>(.segment)*`
// reference grammar against a registry.
package address

import (
	"strconv"
	"strings"

	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/google/uuid"
)

// SegmentKind distinguishes the three segment forms the grammar
// allows.
type SegmentKind int

const (
	SegmentField SegmentKind = iota
	SegmentIndex
	SegmentKey
)

// Segment is one `.name` / `.123` / `."quoted key"` step in an
// address after the leading uuid.
type Segment struct {
	Kind  SegmentKind
	Name  string // SegmentField
	Index int    // SegmentIndex
	Key   string // SegmentKey
}

// AST is the parsed form of an address: the referenced entity's
// ecs_id plus the sequence of projection segments.
type AST struct {
	EcsID    uuid.UUID
	Segments []Segment
}

// Parse parses raw into an AST. Grammar: `@` then a canonical
// hyphenated UUID, optionally followed by one or more `.segment`
// where segment is an identifier, an integer literal, or a
// double-quoted string literal (required for map keys that look like
// integers, to keep the two forms unambiguous).
func Parse(raw string) (*AST, error) {
	if !strings.HasPrefix(raw, "@") {
		return nil, entityerr.AddressSyntax(raw, errMissingAt)
	}
	rest := raw[1:]

	uuidPart := rest
	var segmentsRaw string
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		uuidPart = rest[:idx]
		segmentsRaw = rest[idx+1:]
	}

	if len(uuidPart) != 36 || uuidPart != strings.ToLower(uuidPart) {
		return nil, entityerr.AddressSyntax(raw, errNonCanonicalUUID)
	}
	id, err := uuid.Parse(uuidPart)
	if err != nil {
		return nil, entityerr.AddressSyntax(raw, err)
	}

	ast := &AST{EcsID: id}
	if segmentsRaw == "" {
		return ast, nil
	}

	segs, err := splitSegments(segmentsRaw)
	if err != nil {
		return nil, entityerr.AddressSyntax(raw, err)
	}
	for _, s := range segs {
		seg, err := parseSegment(s)
		if err != nil {
			return nil, entityerr.AddressSyntax(raw, err)
		}
		ast.Segments = append(ast.Segments, seg)
	}
	return ast, nil
}

var errMissingAt = entityerr.New(entityerr.CodeAddressSyntax, "address must start with '@'")

var errNonCanonicalUUID = entityerr.New(entityerr.CodeAddressSyntax, "uuid must be in canonical lowercase hyphenated form")

// splitSegments splits a dot-joined segment string, respecting
// double-quoted literals that may themselves contain dots.
func splitSegments(s string) ([]string, error) {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == '.' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, entityerr.New(entityerr.CodeAddressSyntax, "unterminated quoted segment")
	}
	out = append(out, cur.String())
	return out, nil
}

func parseSegment(s string) (Segment, error) {
	if s == "" {
		return Segment{}, entityerr.New(entityerr.CodeAddressSyntax, "empty segment")
	}
	if strings.HasPrefix(s, `"`) {
		if !strings.HasSuffix(s, `"`) || len(s) < 2 {
			return Segment{}, entityerr.New(entityerr.CodeAddressSyntax, "malformed quoted segment")
		}
		return Segment{Kind: SegmentKey, Key: s[1 : len(s)-1]}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Segment{Kind: SegmentIndex, Index: n}, nil
	}
	if isIdentifier(s) {
		return Segment{Kind: SegmentField, Name: s}, nil
	}
	// A string key that is not quoted is only legal when it cannot be
	// mistaken for an integer; unquoted non-identifier text is a syntax
	// error (ambiguous integer-vs-string segments require explicit
	// quoting).
	return Segment{}, entityerr.New(entityerr.CodeAddressSyntax, "segment is neither an identifier, integer, nor quoted string: "+s)
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
