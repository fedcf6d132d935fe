package keystroke

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"time"
)

// Linux input event constants (linux/input-event-codes.h).
const (
	evKey = 0x01

	evRepBit = 1 << 0x14

	keyBackspace  = 14
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keySpace      = 57
	keyCapsLock   = 58
	keyKPEnter    = 96
	keyRightCtrl  = 97
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

// usKeymap maps evdev key codes to the unshifted and shifted characters of
// a US layout.
var usKeymap = map[uint16][2]rune{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},

	// Keypad. Num Lock state is not tracked; digits are assumed.
	55: {'*', '*'}, 71: {'7', '7'}, 72: {'8', '8'}, 73: {'9', '9'}, 74: {'-', '-'},
	75: {'4', '4'}, 76: {'5', '5'}, 77: {'6', '6'}, 78: {'+', '+'},
	79: {'1', '1'}, 80: {'2', '2'}, 81: {'3', '3'}, 82: {'0', '0'}, 83: {'.', '.'},
	98: {'/', '/'},
}

// evdevTranslator turns raw key codes from one device into key events,
// tracking that device's modifier state.
type evdevTranslator struct {
	lshift, rshift bool
	lctrl, rctrl   bool
	lmeta, rmeta   bool
	caps           bool
}

// translate handles one EV_KEY event. value is 0 for release, 1 for press
// and 2 for autorepeat.
func (t *evdevTranslator) translate(code uint16, value int32, when time.Time) (KeyEvent, bool) {
	down := value != 0

	switch code {
	case keyLeftShift:
		t.lshift = down
		return KeyEvent{}, false
	case keyRightShift:
		t.rshift = down
		return KeyEvent{}, false
	case keyLeftCtrl:
		t.lctrl = down
		return KeyEvent{}, false
	case keyRightCtrl:
		t.rctrl = down
		return KeyEvent{}, false
	case keyLeftMeta:
		t.lmeta = down
		return KeyEvent{}, false
	case keyRightMeta:
		t.rmeta = down
		return KeyEvent{}, false
	case keyCapsLock:
		if value == 1 {
			t.caps = !t.caps
		}
		return KeyEvent{}, false
	}

	if !down {
		return KeyEvent{}, false
	}

	switch code {
	case keyBackspace:
		return KeyEvent{Kind: KindBackspace, When: when}, true
	case keyEnter, keyKPEnter:
		return KeyEvent{Kind: KindEnter, When: when}, true
	case keySpace:
		return KeyEvent{Kind: KindSpace, Char: ' ', When: when}, true
	}

	// Shortcuts are not text.
	if t.lctrl || t.rctrl || t.lmeta || t.rmeta {
		return KeyEvent{}, false
	}

	pair, ok := usKeymap[code]
	if !ok {
		return KeyEvent{}, false
	}

	shifted := t.lshift || t.rshift
	r := pair[0]
	if r >= 'a' && r <= 'z' && t.caps {
		shifted = !shifted
	}
	if shifted {
		r = pair[1]
	}
	return KeyEvent{Kind: KindChar, Char: r, When: when}, true
}

// decodeInputEvent unpacks a struct input_event whose struct timeval
// occupies tvSize bytes.
func decodeInputEvent(b []byte, tvSize int) (typ, code uint16, value int32) {
	typ = binary.NativeEndian.Uint16(b[tvSize:])
	code = binary.NativeEndian.Uint16(b[tvSize+2:])
	value = int32(binary.NativeEndian.Uint32(b[tvSize+4:]))
	return typ, code, value
}

// parseInputDevices reads /proc/bus/input/devices and returns the event
// nodes of devices that look like keyboards: a kbd handler and key repeat.
func parseInputDevices(r io.Reader) []string {
	var devices []string

	scanner := bufio.NewScanner(r)
	var handler string
	var kbd, repeat bool

	flush := func() {
		if handler != "" && kbd && repeat {
			devices = append(devices, "/dev/input/"+handler)
		}
		handler, kbd, repeat = "", false, false
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				if part == "kbd" {
					kbd = true
				}
				if strings.HasPrefix(part, "event") {
					handler = part
				}
			}
		case strings.HasPrefix(line, "B: EV="):
			bits, err := strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
			if err == nil {
				repeat = bits&evRepBit != 0
			}
		}
	}
	flush()

	return devices
}
