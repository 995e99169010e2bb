package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactKeepsValuesVerbatim(t *testing.T) {
	name, phone := Exact{}.Key(" Ravi ", "+91 99988 87776")
	assert.Equal(t, " Ravi ", name)
	assert.Equal(t, "+91 99988 87776", phone)
}

func TestNormalizedFoldsNameAndPhone(t *testing.T) {
	cases := []struct {
		name, phone         string
		wantName, wantPhone string
	}{
		{"Ravi", "9998887776", "ravi", "9998887776"},
		{"  RAVI   Kumar ", "+91 99988-87776", "ravi kumar", "9998887776"},
		{"ravi kumar", "09998887776", "ravi kumar", "9998887776"},
		{"Asha", "n/a", "asha", "n/a"},
	}
	for _, tc := range cases {
		gotName, gotPhone := Normalized{}.Key(tc.name, tc.phone)
		assert.Equal(t, tc.wantName, gotName, tc.name)
		assert.Equal(t, tc.wantPhone, gotPhone, tc.phone)
	}
}

func TestNewResolvesStrategies(t *testing.T) {
	n, err := New("")
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, n.Name())

	n, err = New(StrategyNormalized)
	require.NoError(t, err)
	assert.Equal(t, StrategyNormalized, n.Name())

	_, err = New("fuzzy")
	assert.Error(t, err)
}
