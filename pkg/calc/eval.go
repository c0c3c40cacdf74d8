package calc

import (
	"math"
)

// Grammar, loosest to tightest binding. Every level evaluates the next
// tighter level for its operands.
//
//   Bitwise        = Operand { ('&' | '|' | '^' | '<<' | '>>') Operand | '~' }
//   Operand        = '~' Operand | Additive
//   Additive       = Multiplicative { ('+' | '-') Multiplicative }
//   Multiplicative = Exponent { ('*' | '/' | '%') Exponent }
//   Exponent       = Primary { '**' Exponent | '²' | '³' }
//   Primary        = number | '-' number | '(' Bitwise ')'

const (
	expectOperator = "operator"
	expectNumber   = "number"
	expectClose    = ")"
	expectInteger  = "Not a integer number!"
	expectShift    = "non-negative integer"
	expectEnd      = "end of input"
)

// Result is the value of a grammar level together with the number of tokens
// it consumed, counted from the start of the slice that level was given.
type Result struct {
	Value    float64
	Consumed int
}

// IsWhole reports whether the value is integer-representable. Only whole
// values may be operands of bitwise operators.
func (r Result) IsWhole() bool {
	return r.Value == math.Floor(r.Value)
}

// Eval tokenizes and evaluates an expression. Tokens left over after the
// outermost expression are ignored, so "1 + 2)" evaluates to 3.
func Eval(input string) (float64, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return 0, err
	}
	return Parse(tokens)
}

// EvalAll is like Eval but fails if any token is left unconsumed.
func EvalAll(input string) (float64, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return 0, err
	}
	return ParseAll(tokens)
}

// Parse evaluates a token sequence with the loosest grammar level and returns
// its value. It does not check that every token was consumed.
func Parse(tokens []Token) (float64, error) {
	r, err := Bitwise(tokens)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// ParseAll evaluates a token sequence and reports the first unconsumed token
// as unexpected.
func ParseAll(tokens []Token) (float64, error) {
	r, err := Bitwise(tokens)
	if err != nil {
		return 0, err
	}
	if r.Consumed < len(tokens) {
		return 0, NewUnexpectedToken(tokens[r.Consumed].Text(), expectEnd)
	}
	return r.Value, nil
}

// Bitwise evaluates &, |, ^, << and >> between whole operands, and ~ both as
// a prefix of an operand and as a postfix of the value accumulated so far.
func Bitwise(tokens []Token) (Result, error) {
	left, err := bitwiseOperand(tokens)
	if err != nil {
		return Result{}, err
	}

	for left.Consumed < len(tokens) {
		tok := tokens[left.Consumed]
		switch tok.Type {
		case TokenBitAnd, TokenBitOr, TokenBitXor, TokenLShift, TokenRShift:
			right, err := bitwiseOperand(tokens[left.Consumed+1:])
			if err != nil {
				return Result{}, err
			}
			v, err := bitwiseBinary(tok.Type, left, right)
			if err != nil {
				return Result{}, err
			}
			left.Value = v
			left.Consumed += right.Consumed + 1
		case TokenBitNot:
			if !left.IsWhole() {
				return Result{}, NewUnexpectedToken(FormatNumber(left.Value), expectInteger)
			}
			left.Value = float64(^toInt64(left.Value))
			left.Consumed++
		case TokenNumber:
			return Result{}, NewUnexpectedToken(tok.Text(), expectOperator)
		default:
			return left, nil
		}
	}
	return left, nil
}

// bitwiseOperand evaluates an additive expression with any number of prefix
// ~ operators.
func bitwiseOperand(tokens []Token) (Result, error) {
	if len(tokens) == 0 || tokens[0].Type != TokenBitNot {
		return Additive(tokens)
	}
	inner, err := bitwiseOperand(tokens[1:])
	if err != nil {
		return Result{}, err
	}
	if !inner.IsWhole() {
		return Result{}, NewUnexpectedToken(FormatNumber(inner.Value), expectInteger)
	}
	return Result{Value: float64(^toInt64(inner.Value)), Consumed: inner.Consumed + 1}, nil
}

func bitwiseBinary(op TokenType, left, right Result) (float64, error) {
	if !left.IsWhole() {
		return 0, NewUnexpectedToken(FormatNumber(left.Value), expectInteger)
	}
	if !right.IsWhole() {
		return 0, NewUnexpectedToken(FormatNumber(right.Value), expectInteger)
	}
	a := toInt64(left.Value)
	b := toInt64(right.Value)

	switch op {
	case TokenBitAnd:
		return float64(a & b), nil
	case TokenBitOr:
		return float64(a | b), nil
	case TokenBitXor:
		return float64(a ^ b), nil
	case TokenLShift:
		if b < 0 {
			return 0, NewUnexpectedToken(FormatNumber(right.Value), expectShift)
		}
		return float64(a << uint64(b)), nil
	case TokenRShift:
		if b < 0 {
			return 0, NewUnexpectedToken(FormatNumber(right.Value), expectShift)
		}
		return float64(a >> uint64(b)), nil
	default:
		panic("calc: not a binary bitwise operator: " + op.String())
	}
}

// Additive evaluates left-associative + and -.
func Additive(tokens []Token) (Result, error) {
	left, err := Multiplicative(tokens)
	if err != nil {
		return Result{}, err
	}

	for left.Consumed < len(tokens) {
		tok := tokens[left.Consumed]
		switch tok.Type {
		case TokenPlus, TokenMinus:
			right, err := Multiplicative(tokens[left.Consumed+1:])
			if err != nil {
				return Result{}, err
			}
			if tok.Type == TokenPlus {
				left.Value += right.Value
			} else {
				left.Value -= right.Value
			}
			left.Consumed += right.Consumed + 1
		case TokenNumber:
			return Result{}, NewUnexpectedToken(tok.Text(), expectOperator)
		default:
			return left, nil
		}
	}
	return left, nil
}

// Multiplicative evaluates left-associative *, / and %. The remainder is the
// floating-point remainder with the sign of the dividend.
func Multiplicative(tokens []Token) (Result, error) {
	left, err := Exponent(tokens)
	if err != nil {
		return Result{}, err
	}

	for left.Consumed < len(tokens) {
		tok := tokens[left.Consumed]
		switch tok.Type {
		case TokenMultiply, TokenDivide, TokenModulo:
			right, err := Exponent(tokens[left.Consumed+1:])
			if err != nil {
				return Result{}, err
			}
			switch tok.Type {
			case TokenMultiply:
				left.Value *= right.Value
			case TokenDivide:
				if right.Value == 0 {
					return Result{}, &Error{Kind: KindDivideByZero}
				}
				left.Value /= right.Value
			case TokenModulo:
				if right.Value == 0 {
					return Result{}, &Error{Kind: KindDivideByZero}
				}
				left.Value = math.Mod(left.Value, right.Value)
			}
			left.Consumed += right.Consumed + 1
		case TokenNumber:
			return Result{}, NewUnexpectedToken(tok.Text(), expectOperator)
		default:
			return left, nil
		}
	}
	return left, nil
}

// Exponent evaluates right-associative ** and the postfix ² and ³.
func Exponent(tokens []Token) (Result, error) {
	left, err := Primary(tokens)
	if err != nil {
		return Result{}, err
	}

	for left.Consumed < len(tokens) {
		tok := tokens[left.Consumed]
		switch tok.Type {
		case TokenExponent:
			// Recurse into this level, not the next, for right-associativity.
			right, err := Exponent(tokens[left.Consumed+1:])
			if err != nil {
				return Result{}, err
			}
			left.Value = math.Pow(left.Value, right.Value)
			left.Consumed += right.Consumed + 1
		case TokenSquare:
			left.Value = left.Value * left.Value
			left.Consumed++
		case TokenCube:
			left.Value = left.Value * left.Value * left.Value
			left.Consumed++
		case TokenNumber:
			return Result{}, NewUnexpectedToken(tok.Text(), expectOperator)
		default:
			return left, nil
		}
	}
	return left, nil
}

// Primary evaluates a number, a minus sign directly followed by a number, or
// a parenthesized expression.
func Primary(tokens []Token) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, &Error{Kind: KindUnexpectedEndOfInput}
	}

	switch tok := tokens[0]; tok.Type {
	case TokenNumber:
		return Result{Value: tok.Value, Consumed: 1}, nil
	case TokenMinus:
		if len(tokens) < 2 {
			return Result{}, &Error{Kind: KindUnexpectedEndOfInput}
		}
		if next := tokens[1]; next.Type != TokenNumber {
			return Result{}, NewUnexpectedToken(next.Text(), expectNumber)
		}
		return Result{Value: -tokens[1].Value, Consumed: 2}, nil
	case TokenOpenParen:
		inner, err := Bitwise(tokens[1:])
		if err != nil {
			return Result{}, err
		}
		closing := inner.Consumed + 1
		if closing >= len(tokens) {
			return Result{}, &Error{Kind: KindUnmatchedParenthesis}
		}
		if end := tokens[closing]; end.Type != TokenCloseParen {
			return Result{}, NewUnexpectedToken(end.Text(), expectClose)
		}
		return Result{Value: inner.Value, Consumed: closing + 1}, nil
	default:
		return Result{}, NewUnexpectedToken(tok.Text(), expectNumber)
	}
}

// toInt64 converts a whole float to int64, saturating at the int64 range and
// mapping NaN to zero.
func toInt64(f float64) int64 {
	f = math.Floor(f)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}
