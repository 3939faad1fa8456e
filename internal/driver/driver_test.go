package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetExitStatusOnlyRaises(t *testing.T) {
	exitMu.Lock()
	exitStatus = 0
	exitMu.Unlock()

	SetExitStatus(1)
	assert.Equal(t, 1, ExitStatus())
	SetExitStatus(0)
	assert.Equal(t, 1, ExitStatus(), "a lower status must never downgrade an earlier failure")
	SetExitStatus(2)
	assert.Equal(t, 2, ExitStatus())
}

func TestTimerStopIsNoopWhenDisabled(t *testing.T) {
	timer := StartTimer("test")
	assert.NotPanics(t, func() { timer.Stop(false) })
}

func TestStartCPUProfileWithEmptyPathIsNoop(t *testing.T) {
	stop, err := StartCPUProfile("")
	require.NoError(t, err)
	assert.NotPanics(t, stop)
}
