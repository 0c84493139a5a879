package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAppend(t *testing.T) {
	cols := []string{"A"}

	tests := []struct {
		name     string
		old      [2]int
		new      [2]int
		policy   MergePolicy
		expected bool
	}{
		{"overlap inside range", [2]int{1, 10}, [2]int{5, 15}, PolicyStrict, true},
		{"same start", [2]int{1, 10}, [2]int{1, 15}, PolicyStrict, false},
		{"starts before old", [2]int{5, 10}, [2]int{1, 15}, PolicyStrict, false},
		{"starts at old end", [2]int{1, 10}, [2]int{10, 15}, PolicyStrict, false},
		{"pure forward extension", [2]int{1, 10}, [2]int{11, 15}, PolicyStrict, false},
		{"forward extension allowed", [2]int{1, 10}, [2]int{11, 15}, PolicyForwardExtend, true},
		{"starts at old end allowed", [2]int{1, 10}, [2]int{10, 15}, PolicyForwardExtend, true},
		{"forward policy still needs later start", [2]int{5, 10}, [2]int{1, 15}, PolicyForwardExtend, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := daily(t, cols, tt.old[0], tt.old[1], 0)
			fresh := daily(t, cols, tt.new[0], tt.new[1], 100)
			assert.Equal(t, tt.expected, CanAppend(old, fresh, tt.policy))
		})
	}
}

func TestCanAppend_Empty(t *testing.T) {
	full := daily(t, []string{"A"}, 1, 5, 0)
	empty := New([]string{"A"})

	assert.False(t, CanAppend(empty, full, PolicyStrict))
	assert.False(t, CanAppend(full, empty, PolicyForwardExtend))
}

func TestAppendAfter_OldWinsOverlap(t *testing.T) {
	// old spans days 1-10, new spans days 5-15
	old := daily(t, []string{"A", "B"}, 1, 10, 0)
	fresh := daily(t, []string{"A", "B"}, 5, 15, 100)

	merged := AppendAfter(old, fresh)

	assert.Equal(t, 15, merged.Len())
	assert.Equal(t, day(1), merged.First())
	assert.Equal(t, day(15), merged.Last())
	assert.True(t, merged.IsStrictlyIncreasing())

	for i := 0; i < merged.Len(); i++ {
		d := merged.Time(i).Day()
		v, _ := merged.Value(i, "A")
		if d <= 10 {
			assert.Equal(t, float64(d), v, "day %d sourced from old", d)
		} else {
			assert.Equal(t, 100+float64(d), v, "day %d sourced from new", d)
		}
	}

	// merged == old ++ suffix of fresh after old.last
	assert.True(t, merged.Equal(Concat(old, fresh.After(old.Last()))))
}

func TestParseMergePolicy(t *testing.T) {
	assert.Equal(t, PolicyForwardExtend, ParseMergePolicy("forward-extend"))
	assert.Equal(t, PolicyStrict, ParseMergePolicy("strict"))
	assert.Equal(t, PolicyStrict, ParseMergePolicy("anything"))
}
