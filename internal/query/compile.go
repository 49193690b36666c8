package query

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports where in the selector source parsing failed.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("selector %q: offset %d: %s", e.Input, e.Offset, e.Msg)
}

// Compile parses a selector string into its IR form.
//
// Whitespace is permitted around the '>' combinator only. A space between
// steps without '>' is an error: the descendant combinator is deliberately
// unsupported, so a selector always spells out its parent chain.
//
// A single-step source compiles to a Step, anything longer to a Chain.
func Compile(src string) (Selector, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.done() {
		return nil, p.fail("empty selector")
	}

	var steps []Step
	for {
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)

		p.skipSpace()
		if p.done() {
			break
		}
		if p.peek() != '>' {
			return nil, p.failf("unexpected %q: steps join with the child combinator '>' only", string(p.peek()))
		}
		p.pos++
		p.skipSpace()
		if p.done() {
			return nil, p.fail("dangling '>'")
		}
	}

	if len(steps) == 1 {
		return steps[0], nil
	}
	return Chain{Steps: steps}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) fail(msg string) error {
	return &SyntaxError{Input: p.src, Offset: p.pos, Msg: msg}
}

func (p *parser) failf(format string, args ...any) error {
	return p.fail(fmt.Sprintf(format, args...))
}

// parseStep parses an optional leading tag followed by any number of simple
// tests. The step ends at whitespace, '>' or end of input.
func (p *parser) parseStep() (Step, error) {
	var preds []Pred
	if isNameStart(p.peek()) {
		preds = append(preds, Tag{Name: p.ident()})
	}
	for {
		switch p.peek() {
		case '#':
			p.pos++
			name := p.ident()
			if name == "" {
				return Step{}, p.fail("'#' needs a ref name")
			}
			preds = append(preds, Ref{Name: name})
		case '.':
			p.pos++
			name := p.ident()
			if name == "" {
				return Step{}, p.fail("'.' needs a class name")
			}
			preds = append(preds, Class{Name: name})
		case '[':
			pred, err := p.parseAttr()
			if err != nil {
				return Step{}, err
			}
			preds = append(preds, pred)
		case ':':
			pred, err := p.parseNth()
			if err != nil {
				return Step{}, err
			}
			preds = append(preds, pred)
		default:
			if len(preds) == 0 {
				return Step{}, p.failf("unexpected %q", string(p.peek()))
			}
			return Step{Preds: preds}, nil
		}
	}
}

// parseAttr parses '[' name ( '=' value )? ']'. Values may be bare or
// double-quoted; quoting is required when the value contains ']' or
// whitespace.
func (p *parser) parseAttr() (Pred, error) {
	p.pos++ // consume '['
	name := p.ident()
	if name == "" {
		return nil, p.fail("'[' needs an attribute name")
	}
	if p.peek() == ']' {
		p.pos++
		return Attr{Name: name}, nil
	}
	if p.peek() != '=' {
		return nil, p.fail("expected '=' or ']' in attribute test")
	}
	p.pos++
	value, err := p.parseAttrValue()
	if err != nil {
		return nil, err
	}
	if p.peek() != ']' {
		return nil, p.fail("unterminated attribute test")
	}
	p.pos++
	return Attr{Name: name, Value: value, HasValue: true}, nil
}

func (p *parser) parseAttrValue() (string, error) {
	if p.peek() == '"' {
		p.pos++
		idx := strings.IndexByte(p.src[p.pos:], '"')
		if idx < 0 {
			return "", p.fail("unterminated quoted value")
		}
		value := p.src[p.pos : p.pos+idx]
		p.pos += idx + 1
		return value, nil
	}
	start := p.pos
	for !p.done() && p.src[p.pos] != ']' && p.src[p.pos] != ' ' && p.src[p.pos] != '\t' {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("empty attribute value (use [name] for a presence test)")
	}
	return p.src[start:p.pos], nil
}

// parseNth parses ':nth(' digits ')'. The index is 0-based and must be a
// plain non-negative integer; there is no an+b arithmetic.
func (p *parser) parseNth() (Pred, error) {
	p.pos++ // consume ':'
	name := p.ident()
	if name != "nth" {
		return nil, p.failf("unknown pseudo-class %q (only :nth is supported)", name)
	}
	if p.peek() != '(' {
		return nil, p.fail("':nth' needs a parenthesised index")
	}
	p.pos++
	start := p.pos
	for !p.done() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return nil, p.fail("':nth' index must be a non-negative integer")
	}
	if p.peek() != ')' {
		return nil, p.fail("unterminated ':nth' index")
	}
	idx, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return nil, p.failf("bad ':nth' index: %v", err)
	}
	p.pos++
	return Nth{Index: idx}, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func (p *parser) ident() string {
	if !isNameStart(p.peek()) {
		return ""
	}
	start := p.pos
	p.pos++
	for !p.done() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}
