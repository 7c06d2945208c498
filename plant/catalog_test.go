package plant

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogCSV = `Tool_ID,fixed_cost,variable_cost,capacity
2,3000,3,800
6,3000,3,1600
13,4500,5,2000
25,2500,7,600
`

func TestReadCatalog(t *testing.T) {
	cat, err := ReadCatalog(strings.NewReader(catalogCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, cat.Len())
}

func TestCatalog_SelectByID(t *testing.T) {
	cat, err := ReadCatalog(strings.NewReader(catalogCSV))
	require.NoError(t, err)

	machines, err := cat.SelectByID("2", "6", "13", "25")
	require.NoError(t, err)
	require.Len(t, machines, 4)

	m := machines["Tool_6"]
	assert.Equal(t, 1600, m.Capacity)
	assert.Equal(t, 3.0, m.VariableCost)
	assert.Equal(t, 3000.0, m.FixedCost)
}

func TestCatalog_SelectByID_Unknown(t *testing.T) {
	cat, err := ReadCatalog(strings.NewReader(catalogCSV))
	require.NoError(t, err)

	_, err = cat.SelectByID("404")
	assert.Error(t, err)
}

func TestCatalog_SelectRandom(t *testing.T) {
	cat, err := ReadCatalog(strings.NewReader(catalogCSV))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	machines, err := cat.SelectRandom(3, rng)
	require.NoError(t, err)
	assert.Len(t, machines, 3)

	_, err = cat.SelectRandom(2, rng)
	assert.Error(t, err, "selection must be larger than 2")

	_, err = cat.SelectRandom(5, rng)
	assert.Error(t, err, "selection larger than catalog")
}

func TestReadCatalog_Malformed(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing column", "Tool_ID,fixed_cost,capacity\n1,100,500\n"},
		{"bad capacity", "Tool_ID,fixed_cost,variable_cost,capacity\n1,100,2,abc\n"},
		{"duplicate id", "Tool_ID,fixed_cost,variable_cost,capacity\n1,100,2,500\n1,200,3,600\n"},
		{"empty", "Tool_ID,fixed_cost,variable_cost,capacity\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCatalog(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}
