package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

// ErrSyntax is returned for rules that cannot be parsed.
var ErrSyntax = errors.New("visibility/expr: syntax error")

// Evaluator is a small, dependency-free rule evaluator.
//
// Supported forms:
//   - truthiness: `enabled`, `!enabled`
//   - equality: `status == "active"`, `count != 3`, `owner == null`
//   - ordering on numbers: `age >= 18`, `total < 100`
//   - composition: `a && (b || !c)`
//
// Identifiers are dotted model paths; the `extras.` prefix reads
// visibility.Context.Extras instead. Compiled rules are cached.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*Program
}

func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*Program)}
}

// Eval compiles rule (once) and runs it against ctx. An empty rule is true.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	prog, err := e.program(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(ctx)
}

func (e *Evaluator) program(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	e.mu.RLock()
	prog, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := Compile(key)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]*Program)
	}
	e.cache[key] = prog
	e.mu.Unlock()
	return prog, nil
}

// Program is a parsed rule.
type Program struct {
	source string
	root   node
}

// Compile parses rule. Use it to reject malformed rules when a form definition
// is loaded rather than on first render.
func Compile(rule string) (*Program, error) {
	source := strings.TrimSpace(rule)
	if source == "" {
		return &Program{}, nil
	}
	toks, err := scan(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.peek().text, source)
	}
	return &Program{source: source, root: root}, nil
}

// String returns the rule text.
func (p *Program) String() string { return p.source }

// Eval runs the program against ctx.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type kind int

const (
	kIdent kind = iota
	kString
	kNumber
	kBool
	kNull
	kEq
	kNeq
	kLt
	kLte
	kGt
	kGte
	kAnd
	kOr
	kNot
	kOpen
	kClose
)

var operators = map[kind]string{
	kEq: "==", kNeq: "!=", kLt: "<", kLte: "<=", kGt: ">", kGte: ">=",
}

type tok struct {
	kind kind
	text string
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) peekByte(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDelimiter(c byte) bool {
	return isSpace(c) || strings.IndexByte("()!=&|<>", c) >= 0
}

func scan(src string) ([]tok, error) {
	s := &scanner{src: src}
	var out []tok
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isSpace(c) {
			s.pos++
			continue
		}

		if t, width, ok := s.operator(); ok {
			out = append(out, t)
			s.pos += width
			continue
		}

		switch c {
		case '=', '&', '|':
			return nil, fmt.Errorf("%w: single %q at offset %d", ErrSyntax, c, s.pos)
		case '"', '\'':
			text, err := s.quoted(c)
			if err != nil {
				return nil, err
			}
			out = append(out, tok{kind: kString, text: text})
			continue
		}

		start := s.pos
		for s.pos < len(s.src) && !isDelimiter(s.src[s.pos]) {
			s.pos++
		}
		out = append(out, classify(s.src[start:s.pos]))
	}
	return out, nil
}

func (s *scanner) operator() (tok, int, bool) {
	two := string([]byte{s.peekByte(0), s.peekByte(1)})
	switch two {
	case "==":
		return tok{kEq, two}, 2, true
	case "!=":
		return tok{kNeq, two}, 2, true
	case "<=":
		return tok{kLte, two}, 2, true
	case ">=":
		return tok{kGte, two}, 2, true
	case "&&":
		return tok{kAnd, two}, 2, true
	case "||":
		return tok{kOr, two}, 2, true
	}
	switch s.peekByte(0) {
	case '<':
		return tok{kLt, "<"}, 1, true
	case '>':
		return tok{kGt, ">"}, 1, true
	case '!':
		return tok{kNot, "!"}, 1, true
	case '(':
		return tok{kOpen, "("}, 1, true
	case ')':
		return tok{kClose, ")"}, 1, true
	}
	return tok{}, 0, false
}

func (s *scanner) quoted(quote byte) (string, error) {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote:
			s.pos++
			body := s.src[start+1 : s.pos-1]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `"`, `\"`)
				body = strings.ReplaceAll(body, `\'`, `'`)
			}
			text, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", fmt.Errorf("%w: string literal at offset %d: %v", ErrSyntax, start, err)
			}
			return text, nil
		}
		s.pos++
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", ErrSyntax, start)
}

func classify(word string) tok {
	switch strings.ToLower(word) {
	case "true", "false":
		return tok{kind: kBool, text: strings.ToLower(word)}
	case "null", "nil":
		return tok{kind: kNull, text: "null"}
	}
	if c := word[0]; (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' {
		if _, err := strconv.ParseFloat(word, 64); err == nil {
			return tok{kind: kNumber, text: word}
		}
	}
	return tok{kind: kIdent, text: word}
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() tok {
	if p.done() {
		return tok{}
	}
	return p.toks[p.pos]
}

func (p *parser) accept(k kind) (tok, bool) {
	if p.done() || p.toks[p.pos].kind != k {
		return tok{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(kNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if _, ok := p.accept(kOpen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(kClose); !ok {
			return nil, fmt.Errorf("%w: missing ')'", ErrSyntax)
		}
		return inner, nil
	}

	ident, ok := p.accept(kIdent)
	if !ok {
		if p.done() {
			return nil, fmt.Errorf("%w: unexpected end of rule", ErrSyntax)
		}
		return nil, fmt.Errorf("%w: expected identifier, got %q", ErrSyntax, p.peek().text)
	}
	ref, err := newRef(ident.text)
	if err != nil {
		return nil, err
	}

	op := p.peek().kind
	if _, isOp := operators[op]; !isOp || p.done() {
		return truthyNode{ref}, nil
	}
	p.pos++
	lit, err := p.literal()
	if err != nil {
		return nil, err
	}
	if op != kEq && op != kNeq && lit.kind != kNumber {
		return nil, fmt.Errorf("%w: %s needs a number, got %q", ErrSyntax, operators[op], lit.text)
	}
	return compareNode{ref: ref, op: op, lit: lit}, nil
}

func (p *parser) literal() (tok, error) {
	if p.done() {
		return tok{}, fmt.Errorf("%w: missing value after operator", ErrSyntax)
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case kString, kNumber, kBool, kNull:
		return t, nil
	case kIdent:
		// Bare words compare as strings: `plan == pro`.
		return tok{kind: kString, text: t.text}, nil
	}
	return tok{}, fmt.Errorf("%w: expected value, got %q", ErrSyntax, t.text)
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	if ok, err := n.left.eval(ctx); err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	if ok, err := n.left.eval(ctx); err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok && err == nil, err
}

// ref is a parsed identifier: a model path or, with extras set, a path into
// Context.Extras.
type ref struct {
	extras bool
	raw    string
	path   form.Path
}

func newRef(raw string) (ref, error) {
	r := ref{raw: raw}
	if rest, ok := cutPrefixFold(raw, "extras."); ok {
		r.extras = true
		raw = rest
	}
	path, err := form.ParsePath(raw)
	if err != nil {
		return ref{}, fmt.Errorf("%w: identifier %q: %v", ErrSyntax, r.raw, err)
	}
	r.path = path
	return r, nil
}

func (r ref) resolve(ctx visibility.Context) (any, bool) {
	source := ctx.Values
	if r.extras {
		source = ctx.Extras
	}
	if len(source) == 0 {
		return nil, false
	}
	// Flat keys holding dots win over nested lookup.
	if v, ok := source[r.path.String()]; ok {
		return v, true
	}
	return r.path.Get(source)
}

type truthyNode struct{ ref ref }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	value, ok := n.ref.resolve(ctx)
	return ok && truthy(value), nil
}

type compareNode struct {
	ref ref
	op  kind
	lit tok
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	value, _ := n.ref.resolve(ctx)

	var equal bool
	switch n.lit.kind {
	case kNull:
		equal = value == nil
	case kBool:
		got, _ := toBool(value)
		equal = got == (n.lit.text == "true")
	case kString:
		equal = toString(value) == n.lit.text
	case kNumber:
		want, _ := strconv.ParseFloat(n.lit.text, 64)
		got, _ := toNumber(value)
		switch n.op {
		case kLt:
			return got < want, nil
		case kLte:
			return got <= want, nil
		case kGt:
			return got > want, nil
		case kGte:
			return got >= want, nil
		}
		equal = got == want
	}

	if n.op == kNeq {
		return !equal, nil
	}
	return equal, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := toNumber(value); ok {
		return n != 0
	}
	return true
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed, true
		}
	}
	return truthy(value), true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}
