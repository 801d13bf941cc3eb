package clip_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/clip"
)

func TestOpen_Memory(t *testing.T) {
	b, err := clip.Open("memory")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "memory", b.Name())
}

func TestOpen_Unknown(t *testing.T) {
	_, err := clip.Open("carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestMemory_EmptyReadIsReadError(t *testing.T) {
	m := clip.NewMemory()

	_, err := m.ReadText()

	var re *clip.ReadError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, clip.ErrEmpty)
	assert.Equal(t, "memory", re.Backend)
}

func TestMemory_WriteThenRead(t *testing.T) {
	m := clip.NewMemory()

	require.NoError(t, m.WriteText("hello"))
	got, err := m.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, m.Writes())
}

func TestMemory_SetSimulatesExternalCopy(t *testing.T) {
	m := clip.NewMemory()

	m.Set("from elsewhere")
	got, err := m.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "from elsewhere", got)
	assert.Zero(t, m.Writes())
}

func TestMemory_InjectedFailures(t *testing.T) {
	m := clip.NewMemory()
	m.Set("x")
	boom := errors.New("permission denied")

	m.FailReads(boom)
	_, err := m.ReadText()
	var re *clip.ReadError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, boom)

	m.FailWrites(boom)
	err = m.WriteText("y")
	var we *clip.WriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, boom)

	m.FailReads(nil)
	m.FailWrites(nil)
	got, err := m.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}
