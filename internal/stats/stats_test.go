package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundStatistics(t *testing.T) {
	rs := NewRoundStatistics()
	require.EqualValues(t, 0, rs.GetNumRoundsCompleted())
	require.EqualValues(t, 0, rs.GetCurrentMapRuntime())

	for i := 0; i < 7; i++ {
		round := rs.StartRound()
		time.Sleep(time.Millisecond)
		round.EndMap(10)
		rs.BlobReceived()
		rs.BlobSent()
		round.End()
	}
	require.EqualValues(t, 7, rs.GetNumRoundsCompleted())
	require.EqualValues(t, 70, rs.GetNumRowsProcessed())
	sent, received := rs.GetNumBlobs()
	require.EqualValues(t, 7, sent)
	require.EqualValues(t, 7, received)
	require.GreaterOrEqual(t, rs.GetCurrentMapRuntime(), time.Millisecond)
	require.Greater(t, rs.GetLastRoundRuntime(), time.Duration(0))

	msg, err := rs.ToMessage()
	require.Nil(t, err)
	require.EqualValues(t, 7, msg.Fields["roundsCompleted"].GetNumberValue())
	require.EqualValues(t, 70, msg.Fields["rowsProcessed"].GetNumberValue())
}

func TestRoundWithoutMapPhase(t *testing.T) {
	rs := NewRoundStatistics()
	round := rs.StartRound()
	round.End()
	require.EqualValues(t, 1, rs.GetNumRoundsCompleted())
	require.EqualValues(t, 0, rs.GetNumRowsProcessed())
}
