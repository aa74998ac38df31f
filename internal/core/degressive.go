package core

import (
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
)

// degressiveRateVar is the single variable a degressive rate formula may use.
const degressiveRateVar = "daysCount"

// EvaluateDegressiveRate turns a rental duration into a pricing multiplier using
// the operator-configured formula. The formula is an arithmetic expression over
// the daysCount variable, evaluated by a restricted parser (numbers, + - * / and
// parentheses only — no function calls, no side effects).
//
// Fallback policy:
//   - empty formula, or formula without the daysCount token: the multiplier is
//     daysCount itself (pure linear pricing, one day-price per day);
//   - evaluation failure or a non-positive result: the multiplier is 1.0. The
//     failure is logged so an operator misconfiguration does not go fully silent,
//     but it is never surfaced as an error to the caller.
func EvaluateDegressiveRate(formula string, daysCount int) decimal.Decimal {
	days := decimal.NewFromInt(int64(daysCount))
	if !strings.Contains(formula, degressiveRateVar) {
		return days
	}

	rate, err := evalFormula(formula, days)
	if err != nil {
		log.Printf("degressive rate formula %q: %v; falling back to 1.0", formula, err)
		return decimal.NewFromInt(1)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		log.Printf("degressive rate formula %q evaluated to %s; falling back to 1.0", formula, rate)
		return decimal.NewFromInt(1)
	}
	return rate
}

// evalFormula parses and evaluates a formula with days substituted for every
// occurrence of the daysCount variable.
func evalFormula(formula string, days decimal.Decimal) (decimal.Decimal, error) {
	p := &formulaParser{input: formula, days: days}
	result, err := p.parseExpr()
	if err != nil {
		return decimal.Decimal{}, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return decimal.Decimal{}, fmt.Errorf("unexpected character %q at offset %d", p.input[p.pos], p.pos)
	}
	return result, nil
}

// formulaParser is a recursive-descent parser over the grammar
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "daysCount" | "(" expr ")" | ("+" | "-") factor
//
// Anything else — identifiers, function calls, comparison operators — is a parse
// error, which the caller converts into the 1.0 fallback.
type formulaParser struct {
	input string
	pos   int
	days  decimal.Decimal
}

func (p *formulaParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *formulaParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *formulaParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Decimal{}, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if c == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

func (p *formulaParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Decimal{}, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if c == '*' {
			left = left.Mul(right)
		} else {
			if right.IsZero() {
				return decimal.Decimal{}, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		}
	}
}

func (p *formulaParser) parseFactor() (decimal.Decimal, error) {
	c, ok := p.peek()
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected end of formula")
	}

	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return decimal.Decimal{}, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil

	case c == '+' || c == '-':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if c == '-' {
			return inner.Neg(), nil
		}
		return inner, nil

	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		n, err := decimal.NewFromString(p.input[start:p.pos])
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid number %q", p.input[start:p.pos])
		}
		return n, nil

	case strings.HasPrefix(p.input[p.pos:], degressiveRateVar):
		p.pos += len(degressiveRateVar)
		return p.days, nil
	}

	return decimal.Decimal{}, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
}
