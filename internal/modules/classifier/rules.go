// Package classifier maps the long instrument descriptions published by the
// Bank of Japan onto a closed set of short canonical names.
package classifier

import (
	"regexp"
	"strings"

	"github.com/aristath/bojops/internal/domain"
)

// RuleKind identifies how a rule matches.
type RuleKind string

const (
	KindLiteral  RuleKind = "literal"
	KindMaturity RuleKind = "maturity"
	KindSession  RuleKind = "session"
)

// Rule is one entry of the ordered rule table. Rules are evaluated in order
// and the first match wins.
type Rule struct {
	Kind    RuleKind
	Pattern string
	// Result is the canonical name for literal rules and the name prefix
	// for maturity rules. Session rules resolve from the captured token.
	Result string

	match func(name string) (string, bool, error)
}

const (
	jgbPrefix   = "JGBs: "
	fixedPrefix = "JGBs: FR "
)

var literalRules = []struct{ pattern, result string }{
	{"Outright purchases of Corporate Bonds", "Corporate Bonds"},
	{"Outright purchases of CP", "CP"},
	{"Outright purchases of T-Bills", "TB"},
	{"inflation-indexed bonds", "JGBs: Inflation Linked"},
	{"floating-rate bonds", "JGBs: Floating Rate"},
	{"US Dollar Funds-Supplying Operations against Pooled Collateral (Sales of JGSs under repurchase agreements)", "USD: JGS PC"},
	{"US Dollar Funds-Supplying Operations against Pooled Collateral", "USD: PC"},
	{"Funds-Supplying Operations against Pooled Collateral (at All Offices)", "Funds-Supplying Operations"},
}

const maturityClause = `maturity of (?:more than ([0-9]?[0-9]) years?\)?)?(?:(?:.+)?up to ([0-9]?[0-9]) years?\))?`

var (
	fixedRateMaturity = regexp.MustCompile(`(?i)^.+ \(fixed-rate method\) .+ ` + maturityClause)
	auctionMaturity   = regexp.MustCompile(`(?i)^.+ ` + maturityClause)
	lendingSession    = regexp.MustCompile(`(?i)^.+ \(Sales of JGSs under repurchase agreements\) /offered in the (.+)/.+`)
)

var sessions = map[string]string{
	"morning":   "Sec. lending: am",
	"afternoon": "Sec. lending: pm",
}

var rules = buildRules()

func buildRules() []Rule {
	out := make([]Rule, 0, len(literalRules)+3)
	for _, lr := range literalRules {
		needle := strings.ToLower(lr.pattern)
		result := lr.result
		out = append(out, Rule{
			Kind:    KindLiteral,
			Pattern: lr.pattern,
			Result:  result,
			match: func(name string) (string, bool, error) {
				return result, strings.Contains(strings.ToLower(name), needle), nil
			},
		})
	}
	out = append(out,
		maturityRule(fixedRateMaturity, fixedPrefix),
		maturityRule(auctionMaturity, jgbPrefix),
		Rule{
			Kind:    KindSession,
			Pattern: lendingSession.String(),
			match:   matchSession,
		},
	)
	return out
}

func maturityRule(re *regexp.Regexp, prefix string) Rule {
	return Rule{
		Kind:    KindMaturity,
		Pattern: re.String(),
		Result:  prefix,
		match: func(name string) (string, bool, error) {
			m := re.FindStringSubmatch(name)
			if m == nil {
				return "", false, nil
			}
			band, ok := bandName(m[1], m[2])
			if !ok {
				return "", true, &domain.UnrecognizedInstrumentError{Raw: name, Reason: "maturity"}
			}
			return prefix + band, true, nil
		},
	}
}

func matchSession(name string) (string, bool, error) {
	m := lendingSession.FindStringSubmatch(name)
	if m == nil {
		return "", false, nil
	}
	result, ok := sessions[m[1]]
	if !ok {
		return "", true, &domain.UnrecognizedInstrumentError{Raw: name, Reason: "session " + m[1]}
	}
	return result, true, nil
}

// bandName renders the maturity band for the captured bounds.
func bandName(lower, upper string) (string, bool) {
	switch {
	case lower != "" && upper != "":
		return lower + "-" + upper + "y", true
	case lower != "":
		return ">" + lower + "y", true
	case upper != "":
		return "<" + upper + "y", true
	}
	return "", false
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
