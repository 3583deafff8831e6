package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// evalState evaluates the isolated embedded-state expression:
//
//	(function(a,b,c){return {...}}("x",true,void 0))
//	(function(a,b,c){return {...}})("x",true,void 0)
//
// The parameter list is a compression scheme: repeated literal values are
// hoisted into call-time arguments bound to single-letter parameters. Rather
// than sandboxing a scripting engine, this is a capability-free evaluator
// that supports only literal values, array/object construction and
// parameter substitution, so hostile payloads have nothing to reach.
func evalState(ctx context.Context, src string, maxNodes int) (any, error) {
	p := &parser{src: src, limit: len(src), ctx: ctx, maxNodes: maxNodes}
	if err := p.tick(); err != nil {
		return nil, err
	}

	p.skipSpace()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consumeKeyword("function") {
		return nil, p.malformed("expected function keyword")
	}
	p.skipSpace()
	p.consumeIdent() // optional function name

	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consumeKeyword("return") {
		return nil, p.malformed("expected return statement")
	}

	bodyStart := p.pos
	bodyEnd, err := p.skipToFunctionEnd()
	if err != nil {
		return nil, err
	}

	// The argument list follows the body; bind it before evaluating.
	p.skipSpace()
	closedEarly := false
	if p.peek() == ')' {
		p.pos++ // (function(){...})(args) form
		closedEarly = true
		p.skipSpace()
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if !closedEarly {
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
	}

	env := make(map[string]any, len(params))
	for i, name := range params {
		if i < len(args) {
			env[name] = args[i]
		} else {
			env[name] = nil
		}
	}

	p.pos = bodyStart
	p.limit = bodyEnd
	p.env = env
	p.skipSpace()
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ';' {
		p.pos++
	}
	return value, nil
}

type parser struct {
	src      string
	pos      int
	limit    int
	env      map[string]any
	ctx      context.Context
	nodes    int
	maxNodes int
}

// tick charges one node against the evaluation budget and periodically
// checks the context deadline.
func (p *parser) tick() error {
	p.nodes++
	if p.nodes > p.maxNodes {
		return &Error{Reason: EvaluationTimeout, Err: errors.New("node budget exceeded")}
	}
	if p.nodes&63 == 1 {
		if err := p.ctx.Err(); err != nil {
			return &Error{Reason: EvaluationTimeout, Err: err}
		}
	}
	return nil
}

func (p *parser) malformed(format string, args ...any) error {
	return &Error{Reason: MalformedPayload, Err: fmt.Errorf(format+" at offset %d", append(args, p.pos)...)}
}

func (p *parser) peek() byte {
	if p.pos >= p.limit {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(ch byte) error {
	if p.peek() != ch {
		return p.malformed("expected %q", string(ch))
	}
	p.pos++
	return nil
}

func (p *parser) skipSpace() {
	for p.pos < p.limit && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) consumeKeyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:p.limit], kw) {
		return false
	}
	after := p.pos + len(kw)
	if after < p.limit && isIdentChar(p.src[after]) {
		return false
	}
	p.pos = after
	return true
}

func (p *parser) consumeIdent() string {
	start := p.pos
	if p.pos < p.limit && isIdentStart(p.src[p.pos]) {
		p.pos++
		for p.pos < p.limit && isIdentChar(p.src[p.pos]) {
			p.pos++
		}
	}
	return p.src[start:p.pos]
}

func (p *parser) parseParamList() ([]string, error) {
	p.skipSpace()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var params []string
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return params, nil
		}
		name := p.consumeIdent()
		if name == "" {
			return nil, p.malformed("expected parameter name")
		}
		params = append(params, name)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.malformed("expected ',' or ')' in parameter list")
		}
	}
}

// parseArgList parses the call-time arguments. Arguments are literals only;
// they cannot reference the parameters they bind.
func (p *parser) parseArgList() ([]any, error) {
	var args []any
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, value)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
		case ')':
			p.pos++
			return args, nil
		default:
			return nil, p.malformed("expected ',' or ')' in argument list")
		}
	}
}

// skipToFunctionEnd scans past the return expression to the '}' closing the
// function body and returns the expression's end offset.
func (p *parser) skipToFunctionEnd() (int, error) {
	depth := 1 // the already-consumed '{' of the body
	for p.pos < p.limit {
		switch p.src[p.pos] {
		case '"', '\'', '`':
			end, err := skipStringLiteral(p.src[:p.limit], p.pos)
			if err != nil {
				return 0, p.malformed("%v", err)
			}
			p.pos = end
			continue
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
			if depth == 0 {
				end := p.pos
				p.pos++
				return end, nil
			}
		}
		p.pos++
	}
	return 0, p.malformed("unterminated function body")
}

func (p *parser) parseValue() (any, error) {
	if err := p.tick(); err != nil {
		return nil, err
	}
	p.skipSpace()

	switch ch := p.peek(); {
	case ch == '{':
		return p.parseObject()
	case ch == '[':
		return p.parseArray()
	case ch == '"' || ch == '\'' || ch == '`':
		return p.parseString()
	case ch == '-' || ch == '+' || ch == '.' || isDigit(ch):
		return p.parseNumber()
	case ch == '!':
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return !truthy(value), nil
	case ch == '(':
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return value, nil
	case isIdentStart(ch):
		return p.parseIdentValue()
	default:
		return nil, p.malformed("unexpected character %q", string(ch))
	}
}

func (p *parser) parseIdentValue() (any, error) {
	name := p.consumeIdent()
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "undefined", "NaN":
		return nil, nil
	case "void":
		p.skipSpace()
		if _, err := p.parseValue(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	value, ok := p.env[name]
	if !ok {
		return nil, p.malformed("unknown identifier %q", name)
	}
	return value, nil
}

func (p *parser) parseObject() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	obj := make(map[string]any)
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return obj, nil
	}
	for {
		if err := p.tick(); err != nil {
			return nil, err
		}
		p.skipSpace()
		key, err := p.parseObjectKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj[key] = value
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.malformed("expected ',' or '}' in object literal")
		}
	}
}

// parseObjectKey accepts identifier, string and numeric keys.
func (p *parser) parseObjectKey() (string, error) {
	switch ch := p.peek(); {
	case ch == '"' || ch == '\'' || ch == '`':
		return p.parseString()
	case isDigit(ch):
		n, err := p.parseNumber()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case isIdentStart(ch):
		key := p.consumeIdent()
		if key == "" {
			return "", p.malformed("expected object key")
		}
		return key, nil
	default:
		return "", p.malformed("expected object key")
	}
}

func (p *parser) parseArray() ([]any, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	arr := []any{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return arr, nil
	}
	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, value)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.malformed("expected ',' or ']' in array literal")
		}
	}
}

func (p *parser) parseString() (string, error) {
	quote := p.peek()
	p.pos++
	var sb strings.Builder
	for p.pos < p.limit {
		ch := p.src[p.pos]
		switch ch {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			p.pos++
			if p.pos >= p.limit {
				return "", p.malformed("unterminated escape sequence")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			case '0':
				sb.WriteByte(0)
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			case 'x':
				if p.pos+2 > p.limit {
					return "", p.malformed("truncated hex escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
				if err != nil {
					return "", p.malformed("invalid hex escape")
				}
				sb.WriteByte(byte(n))
				p.pos += 2
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(ch)
			p.pos++
		}
	}
	return "", p.malformed("unterminated string literal")
}

func (p *parser) parseUnicodeEscape() (rune, error) {
	if p.peek() == '{' {
		p.pos++
		end := strings.IndexByte(p.src[p.pos:p.limit], '}')
		if end < 0 {
			return 0, p.malformed("unterminated unicode escape")
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+end], 16, 32)
		if err != nil {
			return 0, p.malformed("invalid unicode escape")
		}
		p.pos += end + 1
		return rune(n), nil
	}
	if p.pos+4 > p.limit {
		return 0, p.malformed("truncated unicode escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
	if err != nil {
		return 0, p.malformed("invalid unicode escape")
	}
	p.pos += 4
	return rune(n), nil
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	if ch := p.peek(); ch == '-' || ch == '+' {
		p.pos++
	}
	if strings.HasPrefix(p.src[p.pos:p.limit], "0x") || strings.HasPrefix(p.src[p.pos:p.limit], "0X") {
		p.pos += 2
		for p.pos < p.limit && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		n, err := strconv.ParseInt(p.src[start:p.pos], 0, 64)
		if err != nil {
			return 0, p.malformed("invalid number %q", p.src[start:p.pos])
		}
		return float64(n), nil
	}
	for p.pos < p.limit && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if ch := p.peek(); ch == 'e' || ch == 'E' {
		p.pos++
		if ch := p.peek(); ch == '-' || ch == '+' {
			p.pos++
		}
		for p.pos < p.limit && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.malformed("invalid number %q", p.src[start:p.pos])
	}
	return f, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

func isDigit(ch byte) bool    { return ch >= '0' && ch <= '9' }
func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
func isIdentChar(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
