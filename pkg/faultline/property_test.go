package faultline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSeverityFiltering_Property checks that a call at level L is recorded
// iff ordinal(L) <= ordinal(T), for every pair of levels.
func TestSeverityFiltering_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("recorded iff level <= threshold", prop.ForAll(
		func(level, threshold int) bool {
			logger := New(WithThreshold(Severity(threshold)))
			logger.Log(Severity(level), "msg", nil, nil)
			recorded := logger.Len() == 1
			return recorded == (level <= threshold)
		},
		gen.IntRange(int(SeverityFatal), int(SeverityTrace)),
		gen.IntRange(int(SeverityFatal), int(SeverityTrace)),
	))

	properties.TestingRun(t)
}

// TestBoundedHistory_Property checks that after n writes into a buffer of
// capacity c, exactly min(n, c) of the newest entries remain, in order.
func TestBoundedHistory_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("keeps the newest entries in order", prop.ForAll(
		func(capacity, writes int) bool {
			h := newHistory(capacity)
			for i := 0; i < writes; i++ {
				h.add(Entry{Message: itoa(i)})
			}
			all := h.all()
			want := writes
			if want > capacity {
				want = capacity
			}
			if len(all) != want {
				return false
			}
			first := writes - want
			for i, e := range all {
				if e.Message != itoa(first+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}

func itoa(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return digits[i : i+1]
	}
	return itoa(i/10) + digits[i%10:i%10+1]
}
