//go:build linux && cgo && !nohotkey

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

static Display* display = NULL;

static int openDisplay() {
    if (display == NULL) {
        XInitThreads();
        display = XOpenDisplay(NULL);
    }
    return display != NULL;
}

// grabKey returns the grabbed keycode, or 0 on failure.
static int grabKey(const char* keysymName, unsigned int modifiers) {
    if (!openDisplay()) return 0;

    KeySym sym = XStringToKeysym(keysymName);
    if (sym == NoSymbol) return 0;
    KeyCode code = XKeysymToKeycode(display, sym);
    if (code == 0) return 0;

    Window root = DefaultRootWindow(display);
    // Also grab with NumLock (Mod2) and CapsLock held.
    unsigned int extra[] = {0, Mod2Mask, LockMask, Mod2Mask | LockMask};
    for (int i = 0; i < 4; i++) {
        XGrabKey(display, code, modifiers | extra[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(display, root, KeyPressMask | KeyReleaseMask);
    XSync(display, False);
    return code;
}

static void ungrabKey(int code, unsigned int modifiers) {
    if (display == NULL) return;
    Window root = DefaultRootWindow(display);
    unsigned int extra[] = {0, Mod2Mask, LockMask, Mod2Mask | LockMask};
    for (int i = 0; i < 4; i++) {
        XUngrabKey(display, code, modifiers | extra[i], root);
    }
    XSync(display, False);
}

static int nextEvent(int* keycode, int* pressed) {
    if (display == NULL) return 0;

    XEvent event;
    while (XPending(display) > 0) {
        XNextEvent(display, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	code int
	mods C.uint
	cb   func(bool)
}

type linuxManager struct {
	mu    sync.Mutex
	grabs map[string]grab
	stop  chan struct{}
	once  sync.Once
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	if C.openDisplay() == 0 {
		return nil, fmt.Errorf("%w: no X display", ErrUnsupported)
	}
	mgr := &linuxManager{
		grabs: make(map[string]grab),
		stop:  make(chan struct{}),
	}
	go mgr.eventLoop()
	return mgr, nil
}

func x11Mods(m Modifier) C.uint {
	var mods C.uint
	if m&ModShift != 0 {
		mods |= C.ShiftMask
	}
	if m&ModCtrl != 0 {
		mods |= C.ControlMask
	}
	if m&ModAlt != 0 {
		mods |= C.Mod1Mask
	}
	if m&ModSuper != 0 {
		mods |= C.Mod4Mask
	}
	return mods
}

// x11Keysym maps a normalized key to its X keysym name.
func x11Keysym(key string) string {
	if key == "Space" {
		return "space"
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		return string(key[0] + ('a' - 'A'))
	}
	return key
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccel(accel)
	if err != nil {
		return err
	}

	name := C.CString(x11Keysym(a.Key))
	defer C.free(unsafe.Pointer(name))

	mods := x11Mods(a.Mods)
	code := int(C.grabKey(name, mods))
	if code == 0 {
		return fmt.Errorf("failed to grab %s", a)
	}

	m.mu.Lock()
	m.grabs[a.String()] = grab{code: code, mods: mods, cb: callback}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			for C.nextEvent(&keycode, &pressed) != 0 {
				m.dispatch(int(keycode), pressed == 1)
			}
		}
	}
}

func (m *linuxManager) dispatch(code int, pressed bool) {
	m.mu.Lock()
	var cb func(bool)
	for _, g := range m.grabs {
		if g.code == code {
			cb = g.cb
			break
		}
	}
	m.mu.Unlock()

	if cb != nil {
		cb(pressed)
	}
}

func (m *linuxManager) Unregister(accel string) error {
	a, err := ParseAccel(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	g, ok := m.grabs[a.String()]
	delete(m.grabs, a.String())
	m.mu.Unlock()

	if ok {
		C.ungrabKey(C.int(g.code), g.mods)
	}
	return nil
}

func (m *linuxManager) Close() error {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	grabs := m.grabs
	m.grabs = make(map[string]grab)
	m.mu.Unlock()

	for _, g := range grabs {
		C.ungrabKey(C.int(g.code), g.mods)
	}
	return nil
}
