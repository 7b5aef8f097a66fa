package rule

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTemplate reports a template string that cannot be turned into a
// Rule, typically a `/.../` pattern that fails to compile.
var ErrInvalidTemplate = errors.New("rule: invalid template")

// Kind identifies how a Rule compares a value.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindNumber
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindPattern:
		return "pattern"
	default:
		return "none"
	}
}

// Rule is an immutable value constraint: exact string, exact number or a
// regular expression. The zero Rule is "no rule" and matches everything.
type Rule struct {
	kind    Kind
	str     string
	num     float64
	pattern *regexp.Regexp
}

// String builds an exact string-equality rule.
func String(value string) Rule {
	return Rule{kind: KindString, str: value}
}

// Number builds an exact numeric-equality rule.
func Number(value float64) Rule {
	return Rule{kind: KindNumber, num: value}
}

// Pattern builds a rule from a compiled expression. A nil expression yields
// the zero Rule.
func Pattern(expr *regexp.Regexp) Rule {
	if expr == nil {
		return Rule{}
	}
	return Rule{kind: KindPattern, pattern: expr}
}

// MustPattern compiles expr and panics on failure. Intended for package-level
// defaults.
func MustPattern(expr string) Rule {
	return Pattern(regexp.MustCompile(expr))
}

func (r Rule) Kind() Kind { return r.kind }

func (r Rule) IsZero() bool { return r.kind == KindNone }

// Text returns the string operand of a string rule or the source of a
// pattern rule.
func (r Rule) Text() string {
	switch r.kind {
	case KindString:
		return r.str
	case KindPattern:
		return r.pattern.String()
	case KindNumber:
		return strconv.FormatFloat(r.num, 'f', -1, 64)
	default:
		return ""
	}
}

func (r Rule) Number() float64 { return r.num }

func (r Rule) Regexp() *regexp.Regexp { return r.pattern }

func (r Rule) String() string {
	switch r.kind {
	case KindPattern:
		return "/" + r.pattern.String() + "/"
	case KindNone:
		return ""
	default:
		return r.Text()
	}
}

// Matches reports whether value satisfies the rule. Absent values (nil or the
// empty string) satisfy every rule; absence is the required check's concern.
func Matches(r Rule, value any) bool {
	if r.IsZero() || IsEmpty(value) {
		return true
	}
	switch r.kind {
	case KindPattern:
		return r.pattern.MatchString(Stringify(value))
	case KindNumber:
		n, ok := ToNumber(value)
		return ok && n == r.num
	case KindString:
		return Stringify(value) == r.str
	default:
		return true
	}
}

// ParseTemplate turns a raw template string into a Rule. For number fields a
// numeric raw value yields a numeric rule; `/.../` delimited strings compile
// to patterns; anything else is an exact string rule.
func ParseTemplate(raw, fieldType string) (Rule, error) {
	if raw == "" {
		return Rule{}, nil
	}
	if fieldType == "number" {
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(n) {
			return Number(n), nil
		}
	}
	if len(raw) >= 2 && raw[0] == '/' && raw[len(raw)-1] == '/' {
		expr, err := regexp.Compile(raw[1 : len(raw)-1])
		if err != nil {
			return Rule{}, fmt.Errorf("%w %q: %v", ErrInvalidTemplate, raw, err)
		}
		return Pattern(expr), nil
	}
	return String(raw), nil
}

// FromValue builds a Rule from a configuration value decoded from JSON/YAML
// or supplied programmatically.
func FromValue(value any, fieldType string) (Rule, error) {
	switch v := value.(type) {
	case nil:
		return Rule{}, nil
	case Rule:
		return v, nil
	case *regexp.Regexp:
		return Pattern(v), nil
	case string:
		return ParseTemplate(v, fieldType)
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	default:
		return Rule{}, fmt.Errorf("%w: unsupported template type %T", ErrInvalidTemplate, value)
	}
}

// IsEmpty reports whether value counts as absent for required checks.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

// Stringify renders a committed value the way it would appear in a control.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// ToNumber coerces value to a float64. Strings are trimmed and parsed; the
// empty string is not a number.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
