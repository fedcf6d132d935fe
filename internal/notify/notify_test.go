package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledNotifierDiscards(t *testing.T) {
	n := New(false, nil)
	called := false
	n.send = func(ctx context.Context, summary, body string) error {
		called = true
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), "s", "b"))
	assert.False(t, called)
	assert.False(t, n.enabled)
}

func TestEnabledNotifierSends(t *testing.T) {
	n := New(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var got []string
	n.send = func(ctx context.Context, summary, body string) error {
		got = append(got, summary, body)
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), "Timestamp not inserted", "31.02.2024 10:00"))
	assert.Equal(t, []string{"Timestamp not inserted", "31.02.2024 10:00"}, got)
}

func TestNotifierReturnsSendError(t *testing.T) {
	n := New(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.send = func(ctx context.Context, summary, body string) error {
		return ErrUnsupported
	}

	err := n.Notify(context.Background(), "s", "b")
	assert.True(t, errors.Is(err, ErrUnsupported))
}
