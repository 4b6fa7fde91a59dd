package zig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDirective reports a @cImport block containing a builtin the
// C converter cannot express (anything other than @cInclude, @cDefine,
// @cUndef with literal arguments).
var ErrUnsupportedDirective = errors.New("zig: unsupported directive in @cImport block")

// ConvertCInclude renders the @cImport node at idx into C source suitable
// for translate-c.
func ConvertCInclude(t *Tree, idx NodeIndex) (string, error) {
	if int(idx) < 0 || int(idx) >= len(t.Nodes) || t.Nodes[idx].Kind != NodeCImport {
		return "", fmt.Errorf("zig: node %d is not a @cImport block", idx)
	}
	var b strings.Builder
	for _, d := range t.Nodes[idx].Directives {
		switch d.Kind {
		case CInclude:
			if len(d.Args) != 1 {
				return "", ErrUnsupportedDirective
			}
			fmt.Fprintf(&b, "#include <%s>\n", d.Args[0])
		case CDefine:
			switch len(d.Args) {
			case 1:
				fmt.Fprintf(&b, "#define %s\n", d.Args[0])
			case 2:
				fmt.Fprintf(&b, "#define %s %s\n", d.Args[0], d.Args[1])
			default:
				return "", ErrUnsupportedDirective
			}
		case CUndef:
			if len(d.Args) != 1 {
				return "", ErrUnsupportedDirective
			}
			fmt.Fprintf(&b, "#undef %s\n", d.Args[0])
		default:
			return "", ErrUnsupportedDirective
		}
	}
	return b.String(), nil
}
