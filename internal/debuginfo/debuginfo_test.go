package debuginfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	s := &Sidecar{
		SourceFiles: []string{"main.sc"},
		Labels: map[int]Label{
			0: {Kind: FunctionLabel, Name: "main"},
		},
		SourceLocations: map[int]SourceLocation{
			0: {File: 0, Line: 3, Column: 1},
		},
		FunctionRanges: map[string]IPRange{
			"main": {Begin: 0, End: 11},
		},
	}
	raw, err := Marshal(s)
	require.NoError(t, err)

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEmptyReportsNoContent(t *testing.T) {
	assert.True(t, (&Sidecar{}).Empty())
	assert.False(t, (&Sidecar{SourceFiles: []string{"a.sc"}}).Empty())
	var nilSidecar *Sidecar
	assert.True(t, nilSidecar.Empty())
}

func TestFromSymbolTableBuildsAdjacentRanges(t *testing.T) {
	symtab := map[string]int{"main": 0, "helper": 11, "other": 30}
	s := FromSymbolTable(symtab, 40)

	assert.Equal(t, IPRange{Begin: 0, End: 11}, s.FunctionRanges["main"])
	assert.Equal(t, IPRange{Begin: 11, End: 30}, s.FunctionRanges["helper"])
	assert.Equal(t, IPRange{Begin: 30, End: 40}, s.FunctionRanges["other"])
	assert.Equal(t, Label{Kind: FunctionLabel, Name: "main"}, s.Labels[0])
}

func TestFromSymbolTableEmptyInput(t *testing.T) {
	s := FromSymbolTable(nil, 0)
	assert.True(t, s.Empty())
}
