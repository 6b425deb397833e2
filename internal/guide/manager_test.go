package guide

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return "echo", nil
}

func newTestManager(t *testing.T, gen Generator, cfg ManagerConfig) (*Manager, *time.Time) {
	t.Helper()
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(gen, cfg)
	m.now = func() time.Time { return clock }
	t.Cleanup(m.Close)
	return m, &clock
}

func TestManagerLifecycle(t *testing.T) {
	m, _ := newTestManager(t, echoGenerator{}, ManagerConfig{})

	s, err := m.Create(PersonaArtist)
	require.NoError(t, err)
	assert.Equal(t, PersonaArtist, s.Persona())
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID()))
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID())
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.True(t, apperrors.IsNotFoundError(m.Delete(s.ID())))

	_, _, err = s.Submit("still there?")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestManagerRejectsUnknownPersona(t *testing.T) {
	m, _ := newTestManager(t, echoGenerator{}, ManagerConfig{})
	_, err := m.Create("critic")
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, 0, m.Len())
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	m, clock := newTestManager(t, echoGenerator{}, ManagerConfig{SessionTTL: 10 * time.Minute})

	stale, err := m.Create(PersonaCurator)
	require.NoError(t, err)

	*clock = clock.Add(8 * time.Minute)
	fresh, err := m.Create(PersonaCurator)
	require.NoError(t, err)

	*clock = clock.Add(3 * time.Minute)
	assert.Equal(t, 1, m.evictIdle())

	_, err = m.Get(stale.ID())
	assert.Error(t, err)
	_, err = m.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestManagerPassesConfigurationError(t *testing.T) {
	cause := apperrors.NewConfigurationError("LLM_API_KEY is not set", nil)
	m, _ := newTestManager(t, nil, ManagerConfig{ConfigError: cause})

	s, err := m.Create(PersonaCurator)
	require.NoError(t, err)

	_, _, err = s.Submit("hello")
	assert.True(t, apperrors.IsConfigurationError(err))
	assert.ErrorIs(t, err, cause)
}

func TestManagerSubscribersReceiveEvents(t *testing.T) {
	m, _ := newTestManager(t, echoGenerator{}, ManagerConfig{})

	events := make(chan Event, 8)
	m.Subscribe(func(ev Event) { events <- ev })

	s, err := m.Create(PersonaCurator)
	require.NoError(t, err)
	require.NoError(t, s.SetPersona(PersonaHistorian))

	ev := <-events
	assert.Equal(t, EventPersona, ev.Type)
	assert.Equal(t, PersonaHistorian, ev.Persona)
	assert.Equal(t, s.ID(), ev.SessionID)
}
