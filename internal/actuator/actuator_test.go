package actuator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timestampus/internal/timestamp"
)

// recorder captures every side effect in order.
type recorder struct {
	steps    []string
	clip     string
	readErr  error
	writeErr error
	tapErr   error
	slept    []time.Duration
}

func (r *recorder) Tap(ctx context.Context, key string, mods ...string) error {
	r.steps = append(r.steps, "tap "+Hotkey{Key: key, Mods: mods}.String())
	return r.tapErr
}

func (r *recorder) Read() (string, error) {
	r.steps = append(r.steps, "read")
	return r.clip, r.readErr
}

func (r *recorder) Write(text string) error {
	r.steps = append(r.steps, "write "+text)
	if r.writeErr != nil {
		return r.writeErr
	}
	r.clip = text
	return nil
}

func newTestActuator(r *recorder, opts Options) *Actuator {
	a := New(r, r, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.sleep = func(ctx context.Context, d time.Duration) error {
		r.slept = append(r.slept, d)
		return ctx.Err()
	}
	return a
}

func testToken() timestamp.Token {
	return timestamp.NewToken(time.Unix(1735144200, 0), timestamp.ShortTime)
}

func TestHotkeysFor(t *testing.T) {
	mac := HotkeysFor("darwin")
	assert.Equal(t, "cmd+a", mac.SelectAll.String())
	assert.Equal(t, "cmd+v", mac.Paste.String())
	assert.Equal(t, "backspace", mac.Delete)

	for _, goos := range []string{"linux", "windows", "freebsd"} {
		hk := HotkeysFor(goos)
		assert.Equal(t, "ctrl+a", hk.SelectAll.String(), goos)
		assert.Equal(t, "ctrl+v", hk.Paste.String(), goos)
		assert.Equal(t, "backspace", hk.Delete, goos)
	}
}

func TestReplaceSequence(t *testing.T) {
	r := &recorder{clip: "previous"}
	a := newTestActuator(r, DefaultOptions("linux"))

	require.NoError(t, a.Replace(context.Background(), testToken()))

	assert.Equal(t, []string{
		"read",
		"tap ctrl+a",
		"tap backspace",
		"write <t:1735144200:t>",
		"tap ctrl+v",
	}, r.steps)
	assert.Equal(t, "<t:1735144200:t>", r.clip, "clipboard keeps the token by default")

	// Settle first, then one delay per key press.
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
	}, r.slept)
}

func TestReplaceDarwinHotkeys(t *testing.T) {
	r := &recorder{}
	a := newTestActuator(r, DefaultOptions("darwin"))

	require.NoError(t, a.Replace(context.Background(), testToken()))
	assert.Contains(t, r.steps, "tap cmd+a")
	assert.Contains(t, r.steps, "tap cmd+v")
}

func TestReplaceSnapshotFailureIsNotFatal(t *testing.T) {
	r := &recorder{readErr: errors.New("no clipboard")}
	opts := DefaultOptions("linux")
	opts.RestoreClipboard = true
	a := newTestActuator(r, opts)

	require.NoError(t, a.Replace(context.Background(), testToken()))
	assert.Equal(t, "tap ctrl+v", r.steps[len(r.steps)-1], "nothing to restore")
}

func TestReplaceWriteFailureAbortsBeforePaste(t *testing.T) {
	r := &recorder{writeErr: errors.New("helper crashed")}
	a := newTestActuator(r, DefaultOptions("linux"))

	err := a.Replace(context.Background(), testToken())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "helper crashed")
	assert.NotContains(t, r.steps, "tap ctrl+v")
}

func TestReplaceTapFailureContinues(t *testing.T) {
	r := &recorder{tapErr: errors.New("injection denied")}
	a := newTestActuator(r, DefaultOptions("linux"))

	require.NoError(t, a.Replace(context.Background(), testToken()))
	assert.Contains(t, r.steps, "tap ctrl+v")
}

func TestReplaceRestoresClipboard(t *testing.T) {
	r := &recorder{clip: "previous"}
	opts := DefaultOptions("linux")
	opts.RestoreClipboard = true
	opts.RestoreDelay = 250 * time.Millisecond
	a := newTestActuator(r, opts)

	require.NoError(t, a.Replace(context.Background(), testToken()))
	assert.Equal(t, "write previous", r.steps[len(r.steps)-1])
	assert.Equal(t, "previous", r.clip)
	assert.Equal(t, 250*time.Millisecond, r.slept[len(r.slept)-1])
}

func TestReplaceCancelledDuringSettle(t *testing.T) {
	r := &recorder{}
	a := newTestActuator(r, DefaultOptions("linux"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Replace(ctx, testToken())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"read"}, r.steps)
}

func TestSetOptions(t *testing.T) {
	r := &recorder{}
	a := newTestActuator(r, DefaultOptions("linux"))

	opts := a.Options()
	opts.Settle = time.Second
	a.SetOptions(opts)
	assert.Equal(t, time.Second, a.Options().Settle)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
