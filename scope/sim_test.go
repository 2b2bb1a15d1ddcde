package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func simWrite(t *testing.T, s *Sim, frame ...byte) {
	t.Helper()
	require.NoError(t, s.Write(frame))
}

func simRead(t *testing.T, s *Sim, n int) []byte {
	t.Helper()
	out, err := s.Read(n, time.Millisecond)
	require.NoError(t, err)
	return out
}

func TestSimProtectedBootloader(t *testing.T) {
	s := NewSim(1024)

	// Quiet until woken.
	simWrite(t, s, 0x11, 0xEE)
	require.Empty(t, simRead(t, s, 1))

	simWrite(t, s, simWake)
	require.Equal(t, []byte{simAck}, simRead(t, s, 1))

	simWrite(t, s, 0x01, 0xFE)
	require.Equal(t, []byte{simAck, 0x31, 0x00, 0x00, simAck}, simRead(t, s, 5))

	simWrite(t, s, 0x11, 0xEE)
	require.Equal(t, []byte{simNack}, simRead(t, s, 1))
}

func TestSimOpenBootloader(t *testing.T) {
	s := NewSim(1024)
	s.Open = true

	simWrite(t, s, simWake)
	require.Equal(t, []byte{simAck}, simRead(t, s, 1))

	simWrite(t, s, 0x11, 0xEE)
	require.Equal(t, []byte{simAck}, simRead(t, s, 1))

	// Address frame with a good checksum, then a corrupted one.
	simWrite(t, s, 0x08, 0x00, 0x00, 0x00, 0x08)
	require.Equal(t, []byte{simAck}, simRead(t, s, 1))

	simWrite(t, s, 0x08, 0x00, 0x00, 0x00, 0xFF)
	require.Empty(t, simRead(t, s, 1))

	// Size frame.
	simWrite(t, s, 0x7F, 0x80)
	require.Equal(t, []byte{simAck}, simRead(t, s, 1))
}

func TestSimScriptedReadProbe(t *testing.T) {
	s := NewSim(1024)
	s.ReadProbeReply = []byte{0x55}

	simWrite(t, s, simWake)
	simRead(t, s, 1)

	simWrite(t, s, 0x11, 0xEE)
	require.Equal(t, []byte{0x55}, simRead(t, s, 1))

	s.ReadProbeReply = []byte{}
	simWrite(t, s, 0x11, 0xEE)
	require.Empty(t, simRead(t, s, 1))
}

func TestSimResetClearsState(t *testing.T) {
	s := NewSim(1024)

	simWrite(t, s, simWake)
	require.NoError(t, s.SetReset(true))
	require.NoError(t, s.SetReset(false))

	// Asleep again: the read command goes unanswered.
	simWrite(t, s, 0x11, 0xEE)
	require.Empty(t, simRead(t, s, 1))
	require.Equal(t, []bool{true, false}, s.ResetStates)
}

func TestSimPowerCycleClearsState(t *testing.T) {
	s := NewSim(1024)

	simWrite(t, s, simWake)
	require.NoError(t, s.SetPower(false))
	require.NoError(t, s.SetPower(true))

	simWrite(t, s, 0x11, 0xEE)
	require.Empty(t, simRead(t, s, 1))
	require.Equal(t, []bool{false, true}, s.PowerStates)
}
