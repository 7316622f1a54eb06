package element

import (
	"fmt"
	"strconv"
	"strings"
)

// SeqKind names one token of a parsed preproc.xform sequence: a concrete
// encoding name, or one of the wildcards "br", "bc", "all".
type SeqKind string

// Wildcard kinds accepted by ParseSequence in addition to concrete names.
const (
	KindBR  SeqKind = "br"
	KindBC  SeqKind = "bc"
	KindAll SeqKind = "all"
)

// SeqToken is one comma-separated item of a preproc.xform string: a name
// (concrete encoding or wildcard) plus the optional brace-delimited
// parameter list restricting a wildcard's expansion (e.g. "br{2,3}"
// restricts the br wildcard to K in {2,3}).
type SeqToken struct {
	Name   SeqKind
	Params []int
}

// ParseSequence parses a comma-separated preproc.xform string such as
// "h,br{2,3},all" into an ordered list of tokens. Unknown names fail with
// an error whose text begins "element:" (the facade wraps this as
// InvalidConfig). Whitespace around tokens is ignored.
func ParseSequence(s string) ([]SeqToken, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []SeqToken
	for _, raw := range splitTopLevel(s) {
		tok, err := parseToken(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// splitTopLevel splits on commas that are not inside a {...} parameter
// list, so "br{2,3}" is not cut in half.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseToken(raw string) (SeqToken, error) {
	name := raw
	var params []int
	if i := strings.IndexByte(raw, '{'); i >= 0 {
		if !strings.HasSuffix(raw, "}") {
			return SeqToken{}, fmt.Errorf("element: malformed parameter list in %q", raw)
		}
		name = raw[:i]
		inner := raw[i+1 : len(raw)-1]
		for _, p := range strings.Split(inner, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return SeqToken{}, fmt.Errorf("element: invalid parameter %q in %q", p, raw)
			}
			params = append(params, n)
		}
	}

	switch name {
	case "h", "v", "d", "ad":
		return SeqToken{Name: SeqKind(name), Params: params}, nil
	case "br":
		return SeqToken{Name: KindBR, Params: params}, nil
	case "bc":
		return SeqToken{Name: KindBC, Params: params}, nil
	case "all":
		return SeqToken{Name: KindAll, Params: params}, nil
	default:
		if _, err := ParseEncodingName(name); err == nil {
			return SeqToken{Name: SeqKind(name), Params: params}, nil
		}
		return SeqToken{}, fmt.Errorf("element: unknown encoding name %q", name)
	}
}

// Expand resolves a single token into its concrete encodings, applying the
// wildcard rules from spec.md §4.5 ("br" -> br2..br8, "bc" -> bc2..bc8,
// "all" -> every atom), restricted to Params when present.
func (t SeqToken) Expand() ([]Encoding, error) {
	switch t.Name {
	case KindBR:
		return Expand("br", t.Params)
	case KindBC:
		return Expand("bc", t.Params)
	case KindAll:
		return Expand("all", t.Params)
	default:
		enc, err := ParseEncodingName(string(t.Name))
		if err != nil {
			return nil, err
		}
		return []Encoding{enc}, nil
	}
}
