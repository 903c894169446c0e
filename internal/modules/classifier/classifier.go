package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aristath/bojops/internal/domain"
	"github.com/shopspring/decimal"
)

// Classify returns the canonical name for a raw instrument description.
// It fails with *domain.UnrecognizedInstrumentError when no rule matches or
// when a match resolves to a name outside the canonical set.
func Classify(raw string) (string, error) {
	name := squash(raw)
	if name == "" {
		return "", &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "empty"}
	}
	for _, r := range rules {
		result, ok, err := r.match(name)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if !IsCanonical(result) {
			return "", &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "band " + result}
		}
		return result, nil
	}
	return "", &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "no rule"}
}

var (
	releaseMoreThan = regexp.MustCompile(`(?i)^More than ([0-9]?[0-9]) years?`)
	releaseUpTo     = regexp.MustCompile(`(?i)^(?:.+)?up to ([0-9]?[0-9]) years?`)
)

// ClassifyReleaseMaturity maps the residual-maturity column of a monthly
// release (e.g. "More than 5 years and up to 10 years") to an auction name.
func ClassifyReleaseMaturity(raw string) (string, error) {
	name := squash(raw)
	var lower, upper string
	if m := releaseMoreThan.FindStringSubmatch(name); m != nil {
		lower = m[1]
	}
	if m := releaseUpTo.FindStringSubmatch(name); m != nil {
		upper = m[1]
	}
	band, ok := bandName(lower, upper)
	if !ok {
		return "", &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "release maturity"}
	}
	result := jgbPrefix + band
	if !IsCanonical(result) {
		return "", &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "band " + result}
	}
	return result, nil
}

var releaseAnnotation = regexp.MustCompile(`(?i)^([0-9]?[0-9])-year JGB .+ : ([0-9].[0-9][0-9][0-9])%$`)

// ParseReleaseAnnotation extracts the maturity and purchasing yield from the
// description column of a release's fixed-rate table, e.g.
// "10-year JGB (#366) : 0.250%".
func ParseReleaseAnnotation(raw string) (int, decimal.Decimal, error) {
	m := releaseAnnotation.FindStringSubmatch(squash(raw))
	if m == nil {
		return 0, decimal.Decimal{}, &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "fixed-rate annotation"}
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, decimal.Decimal{}, &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "fixed-rate annotation"}
	}
	yield, err := decimal.NewFromString(m[2])
	if err != nil {
		return 0, decimal.Decimal{}, &domain.UnrecognizedInstrumentError{Raw: raw, Reason: "fixed-rate annotation"}
	}
	return years, yield, nil
}

var fixedRateBuckets = map[int]string{
	2:  "JGBs: FR 1-3y",
	5:  "JGBs: FR 3-5y",
	10: "JGBs: FR 5-10y",
	20: "JGBs: FR 10-25y",
}

// FixedRateBucket maps the maturity of a fixed-rate purchase to its bucket.
func FixedRateBucket(years int) (string, error) {
	if name, ok := fixedRateBuckets[years]; ok {
		return name, nil
	}
	return "", &domain.UnrecognizedMaturityBucketError{Years: years}
}

// squash collapses whitespace runs so that names split across lines in the
// source match the same rules.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
