package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 3
	s.Timeout = time.Hour
	cb := New[int](s, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		assert.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNew_SuccessfulErrorsDoNotTrip(t *testing.T) {
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 1
	s.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errBoom) }
	cb := New[int](s, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, errBoom })
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestNew_HalfOpenRecovers(t *testing.T) {
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 1
	s.Timeout = 10 * time.Millisecond
	cb := New[string](s, zap.NewNop())

	_, _ = cb.Execute(func() (string, error) { return "", errBoom })
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	got, err := cb.Execute(func() (string, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
