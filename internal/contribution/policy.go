// Package contribution computes the minimum suggested contribution for an
// attending party and decides when a proposed payment needs the hardship flow.
//
// The package is pure: no I/O, no clock. Rates and the recent-graduate window
// are configuration.
package contribution

// Rates are per-head amounts in whole currency units.
type Rates struct {
	// Standard is charged for every adult unit.
	Standard int64
	// RecentGraduate replaces Standard for one adult unit when the registrant
	// graduated within the recent cohort window.
	RecentGraduate int64
	// Youth is charged per teen and per child.
	Youth int64
}

// Headcount is the chargeable party size. Toddlers are never charged and are
// therefore not represented.
type Headcount struct {
	Adults   int
	Teens    int
	Children int
}

// Policy evaluates the contribution rules.
type Policy struct {
	rates        Rates
	latestCohort int
	recentCount  int
}

// NewPolicy builds a policy. latestCohort is the most recent graduating year and
// recentCohorts how many cohorts, counting back from it, qualify as recent.
func NewPolicy(rates Rates, latestCohort, recentCohorts int) *Policy {
	if recentCohorts < 0 {
		recentCohorts = 0
	}
	return &Policy{rates: rates, latestCohort: latestCohort, recentCount: recentCohorts}
}

// Rates returns the configured rates.
func (p *Policy) Rates() Rates { return p.rates }

// IsRecentGraduate reports whether yearOfPassing falls inside the recent window
// (latestCohort-recentCohorts, latestCohort].
func (p *Policy) IsRecentGraduate(yearOfPassing int) bool {
	if yearOfPassing <= 0 || p.recentCount == 0 {
		return false
	}
	return yearOfPassing <= p.latestCohort && yearOfPassing > p.latestCohort-p.recentCount
}

// Minimum returns the minimum suggested contribution for h.
func (p *Policy) Minimum(h Headcount, yearOfPassing int) int64 {
	adults := int64(max(h.Adults, 0))
	youth := int64(max(h.Teens, 0) + max(h.Children, 0))

	youthTotal := youth * p.rates.Youth
	if adults >= 1 && p.IsRecentGraduate(yearOfPassing) {
		return (adults-1)*p.rates.Standard + p.rates.RecentGraduate + youthTotal
	}
	return adults*p.rates.Standard + youthTotal
}

// RequiresHardshipFlow is true iff the registrant is attending and proposes a
// strictly positive amount strictly below the minimum.
func RequiresHardshipFlow(proposed, minimum int64, attending bool) bool {
	return attending && proposed > 0 && proposed < minimum
}

// Satisfied reports whether amount meets the minimum for an attending party.
// Non-attending registrants have no minimum.
func Satisfied(amount, minimum int64, attending bool) bool {
	return !attending || amount >= minimum
}
