package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Path is a parsed lookup expression over a handler's result object,
// e.g. "result.safety.0.safe". Segments are resolved against nested
// map[string]any and []any values. Parsed once at plan generation time.
type Path struct {
	raw      string
	segments []pathSegment
}

type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

// ParsePath parses a dotted path expression. Purely numeric segments
// are treated as slice indices.
func ParsePath(expr string) Path {
	parts := strings.Split(expr, ".")
	segs := make([]pathSegment, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			segs = append(segs, pathSegment{index: n, isIndex: true})
			continue
		}
		segs = append(segs, pathSegment{key: p})
	}
	return Path{raw: expr, segments: segs}
}

// String returns the original expression.
func (p Path) String() string { return p.raw }

// Extract walks the value and returns what the path points at.
func (p Path) Extract(v any) (any, error) {
	cur := v
	for _, seg := range p.segments {
		if seg.isIndex {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("path %q: segment %d is not a list", p.raw, seg.index)
			}
			if seg.index < 0 || seg.index >= len(arr) {
				return nil, fmt.Errorf("path %q: index %d out of range (len %d)", p.raw, seg.index, len(arr))
			}
			cur = arr[seg.index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q: segment %q is not an object", p.raw, seg.key)
		}
		val, ok := m[seg.key]
		if !ok {
			return nil, fmt.Errorf("path %q: key %q not found", p.raw, seg.key)
		}
		cur = val
	}
	return cur, nil
}

// Assertion is one named check against a test case's result object.
// Each operator is its own variant carrying a typed expected value;
// the executor never interprets rule strings at evaluation time.
type Assertion interface {
	Label() string
	Check(result any) AssertionResult
}

// EqualsAssertion passes when the extracted value equals Expected.
// Numeric values compare numerically, everything else by string form.
type EqualsAssertion struct {
	Name     string
	Path     Path
	Expected any
}

func (a EqualsAssertion) Label() string { return a.Name }

func (a EqualsAssertion) Check(result any) AssertionResult {
	actual, err := a.Path.Extract(result)
	if err != nil {
		return failedExtract(a.Name, formatValue(a.Expected), err)
	}
	passed := false
	if ef, eok := toFloat(a.Expected); eok {
		if af, aok := toFloat(actual); aok {
			passed = ef == af
		}
	} else {
		passed = formatValue(actual) == formatValue(a.Expected)
	}
	return AssertionResult{
		Name:     a.Name,
		Passed:   passed,
		Expected: formatValue(a.Expected),
		Actual:   formatValue(actual),
	}
}

// ContainsAssertion passes when the extracted string contains Substring.
type ContainsAssertion struct {
	Name      string
	Path      Path
	Substring string
}

func (a ContainsAssertion) Label() string { return a.Name }

func (a ContainsAssertion) Check(result any) AssertionResult {
	actual, err := a.Path.Extract(result)
	if err != nil {
		return failedExtract(a.Name, "contains "+a.Substring, err)
	}
	s := formatValue(actual)
	return AssertionResult{
		Name:     a.Name,
		Passed:   strings.Contains(s, a.Substring),
		Expected: "contains " + a.Substring,
		Actual:   s,
	}
}

// GreaterThanAssertion passes when the extracted number exceeds Bound.
type GreaterThanAssertion struct {
	Name  string
	Path  Path
	Bound float64
}

func (a GreaterThanAssertion) Label() string { return a.Name }

func (a GreaterThanAssertion) Check(result any) AssertionResult {
	return checkNumeric(a.Name, a.Path, result, "> ", a.Bound, func(v float64) bool { return v > a.Bound })
}

// LessThanAssertion passes when the extracted number is below Bound.
type LessThanAssertion struct {
	Name  string
	Path  Path
	Bound float64
}

func (a LessThanAssertion) Label() string { return a.Name }

func (a LessThanAssertion) Check(result any) AssertionResult {
	return checkNumeric(a.Name, a.Path, result, "< ", a.Bound, func(v float64) bool { return v < a.Bound })
}

// MatchesAssertion passes when the extracted string matches Pattern.
type MatchesAssertion struct {
	Name    string
	Path    Path
	Pattern *regexp.Regexp
}

func (a MatchesAssertion) Label() string { return a.Name }

func (a MatchesAssertion) Check(result any) AssertionResult {
	actual, err := a.Path.Extract(result)
	if err != nil {
		return failedExtract(a.Name, "matches "+a.Pattern.String(), err)
	}
	s := formatValue(actual)
	return AssertionResult{
		Name:     a.Name,
		Passed:   a.Pattern.MatchString(s),
		Expected: "matches " + a.Pattern.String(),
		Actual:   s,
	}
}

func checkNumeric(name string, path Path, result any, opPrefix string, bound float64, ok func(float64) bool) AssertionResult {
	expected := opPrefix + strconv.FormatFloat(bound, 'f', -1, 64)
	actual, err := path.Extract(result)
	if err != nil {
		return failedExtract(name, expected, err)
	}
	v, isNum := toFloat(actual)
	if !isNum {
		return AssertionResult{
			Name:     name,
			Expected: expected,
			Actual:   formatValue(actual),
			Message:  "value is not numeric",
		}
	}
	return AssertionResult{
		Name:     name,
		Passed:   ok(v),
		Expected: expected,
		Actual:   strconv.FormatFloat(v, 'f', -1, 64),
	}
}

func failedExtract(name, expected string, err error) AssertionResult {
	return AssertionResult{
		Name:     name,
		Expected: expected,
		Actual:   "<missing>",
		Message:  err.Error(),
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatValue(v any) string {
	switch s := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
