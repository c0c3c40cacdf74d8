// Package calc implements the calculator's expression tokenizer and its
// precedence-climbing evaluator. Parsing and evaluation happen in a single
// pass: every grammar level returns the value it computed together with the
// number of tokens it consumed.
package calc

import (
	"math"
	"strconv"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Arithmetic
	TokenPlus     TokenType = iota // +
	TokenMinus                     // -
	TokenDivide                    // /
	TokenMultiply                  // *
	TokenExponent                  // **
	TokenSquare                    // ²
	TokenCube                      // ³
	TokenModulo                    // %

	// Bitwise
	TokenBitAnd // &
	TokenBitOr  // |
	TokenBitXor // ^
	TokenBitNot // ~
	TokenRShift // >>
	TokenLShift // <<

	// Grouping
	TokenOpenParen  // (
	TokenCloseParen // )

	// Literals
	TokenNumber // number literal
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value float64 // parsed value (for TokenNumber)
	Pos   int     // rune offset in source
}

// String returns the display name of the token type. These names appear in
// error messages, so they are part of the observable output.
func (t TokenType) String() string {
	switch t {
	case TokenPlus:
		return "Plus"
	case TokenMinus:
		return "Minus"
	case TokenDivide:
		return "Divide"
	case TokenMultiply:
		return "Multiply"
	case TokenExponent:
		return "Exponent"
	case TokenSquare:
		return "Square"
	case TokenCube:
		return "Cube"
	case TokenModulo:
		return "Modulo"
	case TokenBitAnd:
		return "And"
	case TokenBitOr:
		return "Or"
	case TokenBitXor:
		return "Xor"
	case TokenBitNot:
		return "Not"
	case TokenRShift:
		return "RShift"
	case TokenLShift:
		return "LShift"
	case TokenOpenParen:
		return "OpenParen"
	case TokenCloseParen:
		return "CloseParen"
	case TokenNumber:
		return "Number"
	default:
		return "Unknown"
	}
}

// Text returns the text used to cite the token in an error: the number itself
// for number tokens, the type name otherwise.
func (t Token) Text() string {
	if t.Type == TokenNumber {
		return FormatNumber(t.Value)
	}
	return t.Type.String()
}

// String returns a debug-friendly representation of the token.
func (t Token) String() string {
	if t.Type == TokenNumber {
		return t.Type.String() + "(" + FormatNumber(t.Value) + ")@" + strconv.Itoa(t.Pos)
	}
	return t.Type.String() + "@" + strconv.Itoa(t.Pos)
}

// Kinds renders the token types of a sequence, ignoring literal values and
// positions. Tokenizing the same input always produces the same kinds.
func Kinds(tokens []Token) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Type.String())
	}
	return sb.String()
}

// FormatNumber renders a float in its shortest exact decimal form, e.g. 3 or
// 5.5. Used for numbers quoted in errors.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatResult renders an evaluation result for display. Large and tiny
// magnitudes switch to exponent notation.
func FormatResult(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// IsFinite reports whether v is neither infinite nor NaN.
func IsFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
