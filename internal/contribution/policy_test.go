package contribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func examplePolicy() *Policy {
	return NewPolicy(Rates{Standard: 500, RecentGraduate: 350, Youth: 350}, 2025, 2)
}

func TestMinimum(t *testing.T) {
	p := examplePolicy()

	tests := []struct {
		name string
		h    Headcount
		year int
		want int64
	}{
		{"two adults one teen, older cohort", Headcount{Adults: 2, Teens: 1}, 2010, 1350},
		{"two adults one teen, recent cohort", Headcount{Adults: 2, Teens: 1}, 2025, 1200},
		{"previous recent cohort", Headcount{Adults: 2, Teens: 1}, 2024, 1200},
		{"just outside the window", Headcount{Adults: 2, Teens: 1}, 2023, 1350},
		{"single recent adult", Headcount{Adults: 1}, 2025, 350},
		{"children and teens at youth rate", Headcount{Adults: 1, Teens: 2, Children: 3}, 2000, 500 + 5*350},
		{"no adults skips discount", Headcount{Teens: 1}, 2025, 350},
		{"empty party", Headcount{}, 2000, 0},
		{"negative counts are ignored", Headcount{Adults: -1, Teens: -2}, 2000, 0},
		{"unknown year", Headcount{Adults: 1}, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Minimum(tt.h, tt.year))
		})
	}
}

func TestIsRecentGraduate(t *testing.T) {
	p := examplePolicy()
	assert.True(t, p.IsRecentGraduate(2025))
	assert.True(t, p.IsRecentGraduate(2024))
	assert.False(t, p.IsRecentGraduate(2023))
	assert.False(t, p.IsRecentGraduate(2026))

	wide := NewPolicy(Rates{Standard: 500, RecentGraduate: 350, Youth: 350}, 2025, 4)
	assert.True(t, wide.IsRecentGraduate(2022))

	none := NewPolicy(Rates{Standard: 500}, 2025, 0)
	assert.False(t, none.IsRecentGraduate(2025))
}

func TestRequiresHardshipFlow(t *testing.T) {
	tests := []struct {
		name      string
		proposed  int64
		minimum   int64
		attending bool
		want      bool
	}{
		{"below minimum while attending", 500, 1350, true, true},
		{"equal to minimum", 1350, 1350, true, false},
		{"above minimum", 2000, 1350, true, false},
		{"zero proposal", 0, 1350, true, false},
		{"not attending", 500, 1350, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresHardshipFlow(tt.proposed, tt.minimum, tt.attending))
		})
	}
}

func TestSatisfied(t *testing.T) {
	assert.True(t, Satisfied(2000, 1350, true))
	assert.True(t, Satisfied(1350, 1350, true))
	assert.False(t, Satisfied(500, 1350, true))
	assert.True(t, Satisfied(0, 1350, false))
}
