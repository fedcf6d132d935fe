package clipboard

import (
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	content string
	err     error
	block   chan struct{}
	calls   int
}

func (f *fakeBackend) ReadAll() (string, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func (f *fakeBackend) WriteAll(text string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.content = text
	return nil
}

func (f *fakeBackend) wait() {
	if f.block != nil {
		<-f.block
	}
}

func lookPathFor(installed ...string) func(string) (string, error) {
	set := make(map[string]bool)
	for _, name := range installed {
		set[name] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
}

func noEnv(string) string { return "" }

func TestHelpersForLinuxPrefersWaylandInWaylandSession(t *testing.T) {
	x11 := HelpersFor("linux", noEnv)
	require.NotEmpty(t, x11)
	assert.Equal(t, "xclip", x11[0].Name)

	wl := HelpersFor("linux", func(k string) string {
		if k == "WAYLAND_DISPLAY" {
			return "wayland-0"
		}
		return ""
	})
	assert.Equal(t, "wl-clipboard", wl[0].Name)
	assert.Nil(t, HelpersFor("windows", noEnv))
}

func TestReadWriteRoundTrip(t *testing.T) {
	fb := &fakeBackend{}
	cb := NewWith(fb, HelpersFor("linux", noEnv), lookPathFor("xclip"))

	require.NoError(t, cb.Write("<t:1735151400:t>"))
	got, err := cb.Read()
	require.NoError(t, err)
	assert.Equal(t, "<t:1735151400:t>", got)
	assert.Equal(t, 2, fb.calls)
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
		wantOK    bool
		wantMsg   string
	}{
		{"xsel", "linux", []string{"xsel"}, true, "using xsel"},
		{"wayland needs both", "linux", []string{"wl-copy"}, false, "install one of: xclip, xsel, wl-clipboard"},
		{"wayland", "linux", []string{"wl-copy", "wl-paste"}, true, "using wl-clipboard"},
		{"darwin", "darwin", []string{"pbcopy", "pbpaste"}, true, "using pbcopy"},
		{"windows", "windows", nil, true, "native clipboard API"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewWith(&fakeBackend{}, HelpersFor(tt.goos, noEnv), lookPathFor(tt.installed...))
			ok, msg := cb.Available()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestNoToolInstalled(t *testing.T) {
	fb := &fakeBackend{content: "x"}
	cb := NewWith(fb, HelpersFor("linux", noEnv), lookPathFor())

	_, err := cb.Read()
	assert.ErrorIs(t, err, ErrNoClipboardTool)
	assert.ErrorIs(t, cb.Write("x"), ErrNoClipboardTool)
	assert.Zero(t, fb.calls, "backend not reached")
}

func TestBackendError(t *testing.T) {
	boom := errors.New("exit status 1")
	cb := NewWith(&fakeBackend{err: boom}, HelpersFor("darwin", noEnv), lookPathFor("pbcopy", "pbpaste"))

	_, err := cb.Read()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read clipboard")

	err = cb.Write("x")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoClipboardTool)
}

func TestTransferTimeout(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	defer close(fb.block)

	cb := NewWith(fb, nil, lookPathFor())
	cb.timeout = 10 * time.Millisecond

	_, err := cb.Read()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, cb.Write("x"), ErrTimeout)
}
