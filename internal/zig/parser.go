package zig

import (
	"fmt"
)

// Parser contracts: input must be NUL-terminated (the store appends the
// sentinel); the scanner itself never reads past len(src).

// Parse scans src and returns the directive tree. It fails on malformed
// constructs the real compiler would reject in the same region: unterminated
// string literals and unterminated builtin calls or member blocks.
func Parse(src []byte) (*Tree, error) {
	s := &scanner{src: src}
	t := &Tree{}
	if err := s.run(t); err != nil {
		return nil, err
	}
	return t, nil
}

type scanner struct {
	src []byte
	pos int
}

func (s *scanner) run(t *Tree) error {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == 0:
			// Sentinel byte: end of input.
			return nil
		case c == '/' && s.peek(1) == '/':
			s.skipLine()
		case c == '\\' && s.peek(1) == '\\':
			// Multiline string literal segment runs to end of line.
			s.skipLine()
		case c == '"':
			if _, err := s.scanString(); err != nil {
				return err
			}
		case c == '\'':
			s.skipCharLiteral()
		case c == '@':
			if err := s.scanBuiltin(t); err != nil {
				return err
			}
		case isIdentStart(c):
			word := s.scanIdent()
			switch word {
			case "error":
				if err := s.scanErrorSet(t); err != nil {
					return err
				}
			case "enum":
				if err := s.scanEnum(t); err != nil {
					return err
				}
			}
		default:
			s.pos++
		}
	}
	return nil
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipCharLiteral() {
	s.pos++ // opening quote
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '\'', '\n':
			s.pos++
			return
		default:
			s.pos++
		}
	}
}

// scanString consumes a double-quoted literal and returns its unescaped
// value. Zig string literals cannot span lines.
func (s *scanner) scanString() (string, error) {
	start := s.pos
	s.pos++ // opening quote
	var out []byte
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; c {
		case '"':
			s.pos++
			return string(out), nil
		case '\n', 0:
			return "", fmt.Errorf("zig: unterminated string literal at offset %d", start)
		case '\\':
			if s.pos+1 >= len(s.src) {
				return "", fmt.Errorf("zig: unterminated string literal at offset %d", start)
			}
			switch e := s.src[s.pos+1]; e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			default:
				out = append(out, e)
			}
			s.pos += 2
		default:
			out = append(out, c)
			s.pos++
		}
	}
	return "", fmt.Errorf("zig: unterminated string literal at offset %d", start)
}

func (s *scanner) scanIdent() string {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case c == '/' && s.peek(1) == '/':
			s.skipLine()
		default:
			return
		}
	}
}

// scanBuiltin handles an '@' construct at the current position.
func (s *scanner) scanBuiltin(t *Tree) error {
	at := s.pos
	s.pos++ // '@'
	if s.pos < len(s.src) && s.src[s.pos] == '"' {
		// @"quoted identifier"
		_, err := s.scanString()
		return err
	}
	name := s.scanIdent()
	switch name {
	case "import":
		path, ok, err := s.scanStringCallArg(at)
		if err != nil {
			return err
		}
		if ok {
			t.Nodes = append(t.Nodes, Node{Kind: NodeImport, ImportPath: path, Offset: at})
		}
	case "cImport":
		node, err := s.scanCImportBlock(at)
		if err != nil {
			return err
		}
		t.Nodes = append(t.Nodes, node)
	}
	return nil
}

// scanStringCallArg consumes "(<string>)" and returns the literal. A call
// whose argument is not a plain string literal is skipped (ok=false) after
// consuming the balanced argument list.
func (s *scanner) scanStringCallArg(at int) (string, bool, error) {
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '(' {
		return "", false, nil
	}
	s.pos++
	s.skipSpace()
	if s.pos < len(s.src) && s.src[s.pos] == '"' {
		val, err := s.scanString()
		if err != nil {
			return "", false, err
		}
		s.skipSpace()
		if s.pos < len(s.src) && s.src[s.pos] == ')' {
			s.pos++
			return val, true, nil
		}
	}
	if err := s.skipBalanced(at, 1); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// scanCImportBlock consumes "@cImport( ... )" contents, collecting the inner
// builtin directives.
func (s *scanner) scanCImportBlock(at int) (Node, error) {
	node := Node{Kind: NodeCImport, Offset: at}
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '(' {
		return node, nil
	}
	s.pos++
	depth := 1
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == 0:
			return node, fmt.Errorf("zig: unterminated @cImport at offset %d", at)
		case c == '/' && s.peek(1) == '/':
			s.skipLine()
		case c == '"':
			if _, err := s.scanString(); err != nil {
				return node, err
			}
		case c == '(':
			depth++
			s.pos++
		case c == ')':
			depth--
			s.pos++
			if depth == 0 {
				return node, nil
			}
		case c == '@':
			d, err := s.scanCDirective(at)
			if err != nil {
				return node, err
			}
			node.Directives = append(node.Directives, d)
		default:
			s.pos++
		}
	}
	return node, fmt.Errorf("zig: unterminated @cImport at offset %d", at)
}

// scanCDirective consumes one builtin call inside a @cImport block.
func (s *scanner) scanCDirective(at int) (CDirective, error) {
	s.pos++ // '@'
	name := s.scanIdent()
	var kind CDirectiveKind
	switch name {
	case "cInclude":
		kind = CInclude
	case "cDefine":
		kind = CDefine
	case "cUndef":
		kind = CUndef
	default:
		kind = COther
	}
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '(' {
		return CDirective{Kind: kind}, nil
	}
	s.pos++
	d := CDirective{Kind: kind}
	for {
		s.skipSpace()
		if s.pos >= len(s.src) || s.src[s.pos] == 0 {
			return d, fmt.Errorf("zig: unterminated builtin call at offset %d", at)
		}
		switch s.src[s.pos] {
		case ')':
			s.pos++
			return d, nil
		case ',':
			s.pos++
		case '"':
			val, err := s.scanString()
			if err != nil {
				return d, err
			}
			d.Args = append(d.Args, val)
		default:
			// Non-string argument: the converter cannot express this call.
			d.Kind = COther
			if err := s.skipBalanced(at, 1); err != nil {
				return d, err
			}
			return d, nil
		}
	}
}

// skipBalanced consumes input until the paren depth returns to zero.
func (s *scanner) skipBalanced(at, depth int) error {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == 0:
			return fmt.Errorf("zig: unterminated builtin call at offset %d", at)
		case c == '/' && s.peek(1) == '/':
			s.skipLine()
		case c == '"':
			if _, err := s.scanString(); err != nil {
				return err
			}
		case c == '(':
			depth++
			s.pos++
		case c == ')':
			depth--
			s.pos++
			if depth == 0 {
				return nil
			}
		default:
			s.pos++
		}
	}
	return fmt.Errorf("zig: unterminated builtin call at offset %d", at)
}

// scanErrorSet collects the members of an error{...} set. The "error"
// keyword has already been consumed.
func (s *scanner) scanErrorSet(t *Tree) error {
	start := s.pos
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '{' {
		return nil // error union or lone keyword, not a set literal
	}
	s.pos++
	for {
		s.skipSpace()
		if s.pos >= len(s.src) || s.src[s.pos] == 0 {
			return fmt.Errorf("zig: unterminated error set at offset %d", start)
		}
		switch c := s.src[s.pos]; {
		case c == '}':
			s.pos++
			return nil
		case c == ',':
			s.pos++
		case isIdentStart(c):
			t.ErrorNames = append(t.ErrorNames, s.scanIdent())
		default:
			s.pos++
		}
	}
}

// scanEnum collects the field names of an enum{...} declaration, skipping
// over contained declarations. The "enum" keyword has already been consumed.
func (s *scanner) scanEnum(t *Tree) error {
	start := s.pos
	s.skipSpace()
	// Optional tag type: enum(u8)
	if s.pos < len(s.src) && s.src[s.pos] == '(' {
		if err := s.skipBalanced(start, 0); err != nil {
			return err
		}
	}
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '{' {
		return nil
	}
	s.pos++
	expectField := true
	depth := 1
	for s.pos < len(s.src) {
		s.skipSpace()
		if s.pos >= len(s.src) || s.src[s.pos] == 0 {
			break
		}
		switch c := s.src[s.pos]; {
		case c == '}':
			depth--
			s.pos++
			if depth == 0 {
				return nil
			}
		case c == '{':
			depth++
			s.pos++
		case c == '"':
			if _, err := s.scanString(); err != nil {
				return err
			}
		case c == '\'':
			s.skipCharLiteral()
		case c == ',' && depth == 1:
			expectField = true
			s.pos++
		case c == ';' && depth == 1:
			expectField = true
			s.pos++
		case isIdentStart(c):
			word := s.scanIdent()
			if expectField && depth == 1 && !isDeclKeyword(word) {
				t.EnumNames = append(t.EnumNames, word)
			}
			expectField = false
		default:
			s.pos++
		}
	}
	return fmt.Errorf("zig: unterminated enum at offset %d", start)
}

func isDeclKeyword(w string) bool {
	switch w {
	case "pub", "fn", "const", "var", "comptime", "usingnamespace", "test":
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
