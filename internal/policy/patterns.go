package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	// messageOptions gives commit message patterns multiline and dot-all semantics
	messageOptions = regexp2.Multiline | regexp2.Singleline
	plainOptions   = regexp2.None
)

// RegexTimeoutError is returned when matching an operator pattern exceeds the match timeout
type RegexTimeoutError struct {
	Pattern string
	Cause   error
}

func (e *RegexTimeoutError) Error() string {
	return fmt.Sprintf("regex timeout evaluating %q: %v", e.Pattern, e.Cause)
}

func (e *RegexTimeoutError) Unwrap() error {
	return e.Cause
}

// InvalidRegexError is returned for a pattern that does not compile
type InvalidRegexError struct {
	Pattern string
	Cause   error
}

func (e *InvalidRegexError) Error() string {
	return fmt.Sprintf("invalid regex %q: %v", e.Pattern, e.Cause)
}

func (e *InvalidRegexError) Unwrap() error {
	return e.Cause
}

type patternKey struct {
	expr    string
	options regexp2.RegexOptions
}

// patternSet compiles operator patterns on demand for one evaluation
type patternSet struct {
	timeout  time.Duration
	compiled map[patternKey]*regexp2.Regexp
}

func newPatternSet(timeout time.Duration) *patternSet {
	return &patternSet{
		timeout:  timeout,
		compiled: make(map[patternKey]*regexp2.Regexp),
	}
}

func (p *patternSet) compile(expr string, options regexp2.RegexOptions) (*regexp2.Regexp, error) {
	key := patternKey{expr: expr, options: options}
	if re, ok := p.compiled[key]; ok {
		return re, nil
	}

	re, err := regexp2.Compile(expr, options)
	if err != nil {
		return nil, &InvalidRegexError{Pattern: expr, Cause: err}
	}
	if p.timeout > 0 {
		re.MatchTimeout = p.timeout
	}
	p.compiled[key] = re
	return re, nil
}

// compileAnchored compiles pattern so that it must match the whole input.
// In free-spacing mode a trailing "# comment" swallows the closing anchor,
// so the anchor then goes on a line of its own.
func (p *patternSet) compileAnchored(pattern string, options regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := p.compile(`\A(?:`+pattern+`)\z`, options)
	if err == nil {
		return re, nil
	}

	if _, rawErr := regexp2.Compile(pattern, options); rawErr != nil {
		return nil, &InvalidRegexError{Pattern: pattern, Cause: rawErr}
	}
	if re, lineErr := p.compile(`\A(?:`+pattern+"\n)\\z", options); lineErr == nil {
		return re, nil
	}
	return nil, err
}

// fullMatch reports whether pattern matches all of s
func (p *patternSet) fullMatch(pattern, s string, options regexp2.RegexOptions) (bool, error) {
	re, err := p.compileAnchored(pattern, options)
	if err != nil {
		return false, err
	}
	ok, err := re.MatchString(s)
	if err != nil {
		return false, &RegexTimeoutError{Pattern: pattern, Cause: err}
	}
	return ok, nil
}

// find reports whether pattern matches anywhere in s
func (p *patternSet) find(pattern, s string) (bool, error) {
	re, err := p.compile(pattern, plainOptions)
	if err != nil {
		return false, err
	}
	ok, err := re.MatchString(s)
	if err != nil {
		return false, &RegexTimeoutError{Pattern: pattern, Cause: err}
	}
	return ok, nil
}

// firstGroup returns the leftmost capture group when pattern matches all of s.
// ok is false when there is no full match or the pattern has no groups.
// A group that did not take part in the match yields "".
func (p *patternSet) firstGroup(pattern, s string) (group string, ok bool, err error) {
	re, err := p.compileAnchored(pattern, plainOptions)
	if err != nil {
		return "", false, err
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		return "", false, &RegexTimeoutError{Pattern: pattern, Cause: err}
	}
	if m == nil || m.GroupCount() < 2 {
		return "", false, nil
	}

	// regexp2 numbers named groups after unnamed ones, so group 1 is
	// only the leftmost group when that one is unnamed
	var g *regexp2.Group
	if name, found := leftmostGroup(pattern); found && name != "" {
		g = m.GroupByName(name)
	} else {
		g = m.GroupByNumber(1)
	}
	if g == nil || len(g.Captures) == 0 {
		return "", true, nil
	}
	return g.String(), true, nil
}

// leftmostGroup scans pattern for its first capturing group and returns the
// group's name, "" when it is unnamed
func leftmostGroup(pattern string) (name string, found bool) {
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// "]" first in a class is a literal
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '(':
			rest := pattern[i+1:]
			if !strings.HasPrefix(rest, "?") {
				return "", true
			}
			if n, ok := groupName(rest[1:]); ok {
				return n, true
			}
			if strings.HasPrefix(rest, "?#") {
				end := strings.IndexByte(rest, ')')
				if end < 0 {
					return "", false
				}
				i += end + 1
			}
		}
	}
	return "", false
}

// groupName parses the name of a (?<name>...), (?'name'...) or (?P<name>...)
// group from the text after "(?"
func groupName(s string) (string, bool) {
	var end byte
	switch {
	case strings.HasPrefix(s, "P<"):
		s, end = s[2:], '>'
	case strings.HasPrefix(s, "<"):
		s, end = s[1:], '>'
	case strings.HasPrefix(s, "'"):
		s, end = s[1:], '\''
	default:
		return "", false
	}

	// (?<=...) and (?<!...) are lookbehinds
	if s == "" || s[0] == '=' || s[0] == '!' {
		return "", false
	}
	j := strings.IndexByte(s, end)
	if j <= 0 {
		return "", false
	}

	// Balancing groups name the captured group before the "-"
	name, _, _ := strings.Cut(s[:j], "-")
	return name, name != ""
}

// checkPattern compiles pattern exactly as the evaluator will, anchored for
// full-match settings
func (p *patternSet) checkPattern(pattern string, anchored bool, options regexp2.RegexOptions) error {
	var err error
	if anchored {
		_, err = p.compileAnchored(pattern, options)
	} else {
		_, err = p.compile(pattern, options)
	}

	var invalidErr *InvalidRegexError
	if errors.As(err, &invalidErr) {
		return invalidErr.Cause
	}
	return err
}
