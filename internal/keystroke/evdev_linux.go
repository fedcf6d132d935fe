//go:build linux

package keystroke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pollTimeoutMs bounds how long a reader waits before rechecking its context.
const pollTimeoutMs = 200

var (
	timevalSize = int(unsafe.Sizeof(unix.Timeval{}))
	eventSize   = timevalSize + 8
)

// EvdevSource reads keyboards through /dev/input on Linux. It works on
// Wayland and the console, where the X11 hook cannot attach.
type EvdevSource struct {
	device string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newEvdevSource(device string) Source {
	return &EvdevSource{device: device}
}

func (e *EvdevSource) devices() ([]string, error) {
	if e.device != "" {
		return []string{e.device}, nil
	}
	return findKeyboardDevices()
}

// Available checks if we can read a keyboard device.
func (e *EvdevSource) Available() (bool, string) {
	devices, err := e.devices()
	if err != nil {
		return false, fmt.Sprintf("cannot find keyboard devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}

	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("found keyboard device: %s", dev)
		}
	}

	return false, "cannot read keyboard devices (need to be in 'input' group or run as root)"
}

// findKeyboardDevices lists keyboard event nodes from /proc and the
// by-id symlinks, without duplicates.
func findKeyboardDevices() ([]string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var devices []string
	add := func(path string) {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		if !seen[path] {
			seen[path] = true
			devices = append(devices, path)
		}
	}

	for _, dev := range parseInputDevices(f) {
		add(dev)
	}
	matches, _ := filepath.Glob("/dev/input/by-id/*-event-kbd")
	for _, m := range matches {
		add(m)
	}
	return devices, nil
}

// Start opens every readable keyboard and merges their events.
func (e *EvdevSource) Start(ctx context.Context) (<-chan KeyEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil, ErrAlreadyRunning
	}

	devices, err := e.devices()
	if err != nil || len(devices) == 0 {
		return nil, ErrNotAvailable
	}

	var fds []int
	var lastErr error
	for _, dev := range devices {
		fd, err := unix.Open(dev, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", dev, err)
			continue
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, lastErr)
	}

	ctx, e.cancel = context.WithCancel(ctx)
	out := make(chan KeyEvent, 64)
	for _, fd := range fds {
		e.wg.Add(1)
		go e.readLoop(ctx, fd, out)
	}
	go func() {
		e.wg.Wait()
		close(out)
	}()

	e.running = true
	return out, nil
}

func (e *EvdevSource) readLoop(ctx context.Context, fd int, out chan<- KeyEvent) {
	defer e.wg.Done()
	defer unix.Close(fd)

	var tr evdevTranslator
	buf := make([]byte, eventSize*64)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := unix.Poll(pfd, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}
		if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			// Device unplugged.
			return
		}

		m, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}

		now := time.Now()
		for off := 0; off+eventSize <= m; off += eventSize {
			typ, code, value := decodeInputEvent(buf[off:off+eventSize], timevalSize)
			if typ != evKey {
				continue
			}
			ev, ok := tr.translate(code, value, now)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop closes the devices and waits for the readers to exit.
func (e *EvdevSource) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.running = false
	return nil
}
