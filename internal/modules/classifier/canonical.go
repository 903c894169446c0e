package classifier

// Maturity bands shared by auction and fixed-rate purchases.
var maturityBands = []string{"<1y", "1-3y", "3-5y", "5-10y", "10-25y", ">25y"}

// All is the query token for the JGB-family aggregate.
const All = "All"

var canonical = buildCanonical()

var canonicalSet = func() map[string]bool {
	m := make(map[string]bool, len(canonical))
	for _, name := range canonical {
		m[name] = true
	}
	return m
}()

func buildCanonical() []string {
	var out []string
	for _, lr := range literalRules {
		out = append(out, lr.result)
	}
	for _, band := range maturityBands {
		out = append(out, jgbPrefix+band)
	}
	for _, band := range maturityBands {
		out = append(out, fixedPrefix+band)
	}
	return append(out, sessions["morning"], sessions["afternoon"])
}

// Canonical returns every canonical instrument name.
func Canonical() []string {
	out := make([]string, len(canonical))
	copy(out, canonical)
	return out
}

// IsCanonical reports whether name is a canonical instrument name.
func IsCanonical(name string) bool {
	return canonicalSet[name]
}

// JGBFamily is the instrument list the "All" aggregate expands to.
func JGBFamily() []string {
	return []string{
		"JGBs: FR 5-10y",
		"JGBs: FR 1-3y",
		"JGBs: FR 3-5y",
		"JGBs: FR 10-25y",
		"JGBs: <1y",
		"JGBs: 1-3y",
		"JGBs: 3-5y",
		"JGBs: 5-10y",
		"JGBs: 10-25y",
		"JGBs: >25y",
		"JGBs: Inflation Linked",
	}
}

// AuctionBands returns the auction-method band names in maturity order.
func AuctionBands() []string {
	out := make([]string, len(maturityBands))
	for i, band := range maturityBands {
		out[i] = jgbPrefix + band
	}
	return out
}

// FixedRateBands returns the fixed-rate bucket names in maturity order.
func FixedRateBands() []string {
	return []string{"JGBs: FR 1-3y", "JGBs: FR 3-5y", "JGBs: FR 5-10y", "JGBs: FR 10-25y"}
}
