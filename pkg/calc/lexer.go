package calc

import (
	"errors"
	"strconv"
	"unicode"
)

// operatorState classifies a character for the scanner.
type operatorState int

const (
	notAnOperator operatorState = iota
	// complete operators are a single character and are emitted immediately.
	complete
	// potentiallyIncomplete operators may be the first half of a
	// two-character operator: ** << >>.
	potentiallyIncomplete
)

func checkOperator(ch rune) operatorState {
	switch ch {
	case '+', '-', '/', '^', '²', '³', '&', '|', '~', '%', '(', ')':
		return complete
	case '*', '<', '>':
		return potentiallyIncomplete
	default:
		return notAnOperator
	}
}

func isOperator(ch rune) bool {
	return checkOperator(ch) != notAnOperator
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// singleOperator maps a one-character operator to its token type. '<' and
// '>' have no single-character meaning.
func singleOperator(ch rune) (TokenType, bool) {
	switch ch {
	case '+':
		return TokenPlus, true
	case '-':
		return TokenMinus, true
	case '/':
		return TokenDivide, true
	case '*':
		return TokenMultiply, true
	case '^':
		return TokenBitXor, true
	case '²':
		return TokenSquare, true
	case '³':
		return TokenCube, true
	case '&':
		return TokenBitAnd, true
	case '|':
		return TokenBitOr, true
	case '~':
		return TokenBitNot, true
	case '%':
		return TokenModulo, true
	case '(':
		return TokenOpenParen, true
	case ')':
		return TokenCloseParen, true
	default:
		return 0, false
	}
}

// doubleOperator maps a two-character operator to its token type.
func doubleOperator(first, second rune) (TokenType, bool) {
	switch {
	case first == '*' && second == '*':
		return TokenExponent, true
	case first == '<' && second == '<':
		return TokenLShift, true
	case first == '>' && second == '>':
		return TokenRShift, true
	default:
		return 0, false
	}
}

// Lexer tokenizes a calculator expression.
type Lexer struct {
	input  []rune
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	runes := []rune(input)
	return &Lexer{
		input:  runes,
		tokens: make([]Token, 0, len(runes)),
	}
}

// Tokenize is a shortcut to scan a whole string.
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokenize()
}

// Tokenize scans the entire input and returns all tokens in source order.
// Scanning stops at the first error.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if isDigit(ch) || ch == '.' {
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
			continue
		}

		switch checkOperator(ch) {
		case complete:
			tt, ok := singleOperator(ch)
			if !ok {
				return nil, NewInvalidOperator(ch)
			}
			l.tokens = append(l.tokens, Token{Type: tt, Pos: l.pos})
			l.pos++
		case potentiallyIncomplete:
			start := l.pos
			l.pos++
			if l.pos < len(l.input) && isOperator(l.input[l.pos]) {
				tt, ok := doubleOperator(ch, l.input[l.pos])
				if !ok {
					return nil, NewInvalidOperator(ch)
				}
				l.tokens = append(l.tokens, Token{Type: tt, Pos: start})
				l.pos++
				continue
			}
			tt, ok := singleOperator(ch)
			if !ok {
				return nil, NewInvalidOperator(ch)
			}
			l.tokens = append(l.tokens, Token{Type: tt, Pos: start})
		default:
			if unicode.IsSpace(ch) {
				l.pos++
				continue
			}
			return nil, NewUnrecognizedToken(l.readUnrecognized())
		}
	}
	return l.tokens, nil
}

// invalidFloatLiteral describes a literal that has no digits.
const invalidFloatLiteral = "invalid float literal"

// readNumber reads a run of digits containing at most one decimal point. A
// second point ends the literal without being consumed.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if !isDigit(ch) {
			break
		}
		l.pos++
	}

	raw := string(l.input[start:l.pos])
	// Out-of-range literals keep the ±Inf ParseFloat returns with ErrRange.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, NewInvalidNumber(invalidFloatLiteral)
	}
	return Token{Type: TokenNumber, Value: f, Pos: start}, nil
}

// readUnrecognized reads the maximal run of characters that are neither
// whitespace, digits, nor operators.
func (l *Lexer) readUnrecognized() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if unicode.IsSpace(ch) || isOperator(ch) || isDigit(ch) {
			break
		}
		l.pos++
	}
	return string(l.input[start:l.pos])
}
