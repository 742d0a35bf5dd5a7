package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtremes(t *testing.T) {
	most, fewest := Extremes(map[string]int{"b": 3, "a": 3, "c": 1, "d": 1})
	assert.Equal(t, &Tally{ID: "a", Count: 3}, most)
	assert.Equal(t, &Tally{ID: "c", Count: 1}, fewest)

	most, fewest = Extremes(nil)
	assert.Nil(t, most)
	assert.Nil(t, fewest)
}
