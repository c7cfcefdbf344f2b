package collective_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/collective"
)

func TestParseMachineListSkipsUnrecognizedLines(t *testing.T) {
	input := `10.0.0.1 12400
# a comment
10.0.0.2 12400
garbage line
10.0.0.3 12400
`
	machines, rank, err := collective.ParseMachineList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, -1, rank)
	assert.Equal(t, []collective.Machine{
		{IP: "10.0.0.1", Port: 12400},
		{IP: "10.0.0.2", Port: 12400},
		{IP: "10.0.0.3", Port: 12400},
	}, machines)
}

func TestParseMachineListReadsExplicitRank(t *testing.T) {
	input := "10.0.0.1 12400\nrank=2\n10.0.0.2 12400\n"
	_, rank, err := collective.ParseMachineList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}

func TestResolveLocalRankUsesExplicitRank(t *testing.T) {
	machines := []collective.Machine{{IP: "10.0.0.1", Port: 1}, {IP: "10.0.0.2", Port: 1}}
	rank, used, err := collective.ResolveLocalRank(machines, 1, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	assert.Len(t, used, 2)
}

func TestResolveLocalRankMatchesLocalAddress(t *testing.T) {
	machines := []collective.Machine{{IP: "10.0.0.1", Port: 1}, {IP: "10.0.0.2", Port: 1}}
	rank, _, err := collective.ResolveLocalRank(machines, -1, 0, []string{"10.0.0.2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
}

func TestResolveLocalRankFatalWhenNotFound(t *testing.T) {
	machines := []collective.Machine{{IP: "10.0.0.1", Port: 1}}
	_, _, err := collective.ResolveLocalRank(machines, -1, 0, []string{"192.168.1.1"}, nil)
	assert.Error(t, err)
}

func TestResolveLocalRankWarnsAndTrimsExcessMachines(t *testing.T) {
	machines := []collective.Machine{
		{IP: "10.0.0.1", Port: 1},
		{IP: "10.0.0.2", Port: 1},
		{IP: "10.0.0.3", Port: 1},
	}
	_, used, err := collective.ResolveLocalRank(machines, -1, 2, []string{"10.0.0.2"}, nil)
	require.NoError(t, err)
	assert.Len(t, used, 2)
}
