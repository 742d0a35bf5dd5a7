package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNeighbors(t *testing.T) {
	in := []Neighbor{
		{AssemblyID: "B", Score: 0.4},
		{AssemblyID: "C", Score: 0.9},
		{AssemblyID: "B", Score: 0.8},
		{AssemblyID: "D", Score: 0.8},
		{AssemblyID: "E", Score: 0.1},
	}

	got := MergeNeighbors(in, 3)
	assert.Equal(t, []Neighbor{
		{AssemblyID: "C", Score: 0.9},
		{AssemblyID: "B", Score: 0.8},
		{AssemblyID: "D", Score: 0.8},
	}, got)

	all := MergeNeighbors(in, 10)
	assert.Len(t, all, 4)
	seen := map[string]bool{}
	for _, n := range all {
		assert.False(t, seen[n.AssemblyID], "duplicate %s", n.AssemblyID)
		seen[n.AssemblyID] = true
	}

	assert.Empty(t, MergeNeighbors(in, 0))
	assert.Equal(t, "B", in[0].AssemblyID, "input must not be reordered")
}

func TestSortByCompletion(t *testing.T) {
	cs := []Candidate{
		{AssemblyID: "b", Percentage: 50},
		{AssemblyID: "a", Percentage: 50},
		{AssemblyID: "c", Percentage: 90},
	}
	SortByCompletion(cs)
	assert.Equal(t, []string{"c", "a", "b"}, []string{cs[0].AssemblyID, cs[1].AssemblyID, cs[2].AssemblyID})
}
