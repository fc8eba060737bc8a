package expr

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kbeval/pkg/utils"
	"go.uber.org/zap"
)

// SyntaxError reports an expression that cannot be parsed.
type SyntaxError struct {
	Expr string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %s", e.Expr, e.Msg)
}

var callPrefixes = []string{"trans(", "transform("}

// Parse builds the expression tree for text. Terms are split at top-level '+'
// only. An unmatched ')' is logged and parsing continues as if the brackets
// were balanced.
func Parse(text string, logger *zap.Logger) (Node, error) {
	p := &parser{src: text, logger: utils.LoggerOrNop(logger)}
	return p.sum(text)
}

type parser struct {
	src    string
	logger *zap.Logger
}

func (p *parser) sum(s string) (Node, error) {
	parts := p.splitTopLevel(s)
	terms := make([]Node, 0, len(parts))
	for _, part := range parts {
		n, err := p.term(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return Sum{Terms: terms}, nil
}

func (p *parser) term(s string) (Node, error) {
	for _, prefix := range callPrefixes {
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ")") {
			inner := s[len(prefix) : len(s)-1]
			i := strings.LastIndex(inner, ", ")
			if i < 0 {
				return nil, &SyntaxError{Expr: p.src, Msg: fmt.Sprintf("%q: expected \"expr, relation\"", s)}
			}
			rel := strings.TrimSpace(inner[i+2:])
			if rel == "" {
				return nil, &SyntaxError{Expr: p.src, Msg: fmt.Sprintf("%q: empty relation", s)}
			}
			arg, err := p.sum(inner[:i])
			if err != nil {
				return nil, err
			}
			return Transform{Arg: arg, Relation: rel}, nil
		}
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return p.sum(s[1 : len(s)-1])
	}
	if s == "" {
		return nil, &SyntaxError{Expr: p.src, Msg: "empty term"}
	}
	return Leaf{Entity: s}, nil
}

func (p *parser) splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				p.logger.Warn("Unmatched )", zap.String("expr", p.src), zap.Int("offset", i))
				depth = 0
			}
		case '+':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
