// CLAUDE:SUMMARY Merges inline CSS declaration blobs, preserving property order and skipping no-op writes.
package dom

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/gorilla/css/scanner"
)

// MergeStyle merges the declarations of incoming into existing, the way a
// style-merge helper does: properties already present are updated in place,
// new properties are appended in the order they appear in incoming. An
// incoming declaration with an empty value ("color:") removes the property.
//
// changed is false when the merge leaves the declaration list identical to
// existing, so callers can skip the write and keep the raw attribute bytes.
func MergeStyle(existing, incoming string) (merged string, changed bool, err error) {
	base, err := parseDecls(existing)
	if err != nil {
		return "", false, fmt.Errorf("dom: parse existing style: %w", err)
	}
	add, err := parseDecls(incoming)
	if err != nil {
		return "", false, fmt.Errorf("dom: parse style: %w", err)
	}

	index := make(map[string]int, len(base))
	for i, d := range base {
		index[d.Property] = i
	}

	for _, d := range add {
		i, ok := index[d.Property]
		switch {
		case d.Value == "":
			if ok {
				base[i] = nil
				delete(index, d.Property)
				changed = true
			}
		case ok:
			if base[i].Value != d.Value || base[i].Important != d.Important {
				base[i] = d
				changed = true
			}
		default:
			index[d.Property] = len(base)
			base = append(base, d)
			changed = true
		}
	}

	return formatDecls(base), changed, nil
}

// parseDecls tokenizes a declaration list ("a: b; c: d !important").
// Malformed declarations are dropped up to the next ';', as browsers do.
func parseDecls(s string) ([]*css.Declaration, error) {
	var (
		out   []*css.Declaration
		prop  string
		val   strings.Builder
		inVal bool
		bad   bool
		bang  bool
		imp   bool
		depth int
	)
	flush := func() {
		if prop != "" && !bad {
			out = append(out, &css.Declaration{
				Property:  strings.ToLower(prop),
				Value:     strings.TrimSpace(val.String()),
				Important: imp,
			})
		}
		prop, inVal, bad, bang, imp, depth = "", false, false, false, false, 0
		val.Reset()
	}
	space := func() {
		if val.Len() > 0 && !strings.HasSuffix(val.String(), " ") {
			val.WriteByte(' ')
		}
	}

	sc := scanner.New(s)
	for {
		tok := sc.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			flush()
			return out, nil
		case scanner.TokenError:
			return nil, fmt.Errorf("dom: css %d:%d: %s", tok.Line, tok.Column, tok.Value)
		case scanner.TokenComment:
			continue
		}

		if !inVal {
			switch {
			case tok.Type == scanner.TokenChar && tok.Value == ";":
				flush()
			case bad, tok.Type == scanner.TokenS:
			case tok.Type == scanner.TokenIdent && prop == "":
				prop = tok.Value
			case tok.Type == scanner.TokenChar && tok.Value == ":" && prop != "":
				inVal = true
			default:
				bad = true
			}
			continue
		}

		if bang {
			if tok.Type == scanner.TokenS {
				continue
			}
			bang = false
			if tok.Type == scanner.TokenIdent && strings.EqualFold(tok.Value, "important") {
				imp = true
				continue
			}
			val.WriteByte('!')
		}

		switch {
		case tok.Type == scanner.TokenChar && tok.Value == ";" && depth == 0:
			flush()
		case tok.Type == scanner.TokenChar && tok.Value == "!" && depth == 0:
			bang = true
		case tok.Type == scanner.TokenS:
			space()
		case tok.Type == scanner.TokenFunction, tok.Type == scanner.TokenChar && tok.Value == "(":
			depth++
			val.WriteString(tok.Value)
		case tok.Type == scanner.TokenChar && tok.Value == ")":
			if depth > 0 {
				depth--
			}
			val.WriteString(tok.Value)
		default:
			if imp {
				// tokens after !important make the declaration invalid
				bad = true
			}
			val.WriteString(tok.Value)
		}
	}
}

func formatDecls(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d == nil || d.Value == "" {
			continue
		}
		v := d.Value
		if d.Important {
			v += " !important"
		}
		parts = append(parts, d.Property+": "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}
