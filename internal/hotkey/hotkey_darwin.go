//go:build darwin && cgo && !nohotkey

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

extern void goHotkeyCallback(UInt32 id, int pressed);

static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    EventHotKeyID hkID;
    GetEventParameter(theEvent, kEventParamDirectObject, typeEventHotKeyID, NULL, sizeof(hkID), NULL, &hkID);

    int pressed = (GetEventKind(theEvent) == kEventHotKeyPressed) ? 1 : 0;
    goHotkeyCallback(hkID.id, pressed);
    return noErr;
}

static int handlerInstalled = 0;

static void installHandler() {
    if (handlerInstalled) return;
    EventTypeSpec eventTypes[2];
    eventTypes[0].eventClass = kEventClassKeyboard;
    eventTypes[0].eventKind = kEventHotKeyPressed;
    eventTypes[1].eventClass = kEventClassKeyboard;
    eventTypes[1].eventKind = kEventHotKeyReleased;
    InstallApplicationEventHandler(NewEventHandlerUPP(hotkeyHandler), 2, eventTypes, NULL, NULL);
    handlerInstalled = 1;
}

static EventHotKeyRef registerHotkey(UInt32 keyCode, UInt32 modifiers, UInt32 id) {
    installHandler();

    EventHotKeyID hkID;
    hkID.signature = 'mclp';
    hkID.id = id;

    EventHotKeyRef ref = NULL;
    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hkID, GetApplicationEventTarget(), 0, &ref);
    return (status == noErr) ? ref : NULL;
}

static void unregisterHotkey(EventHotKeyRef ref) {
    if (ref != NULL) UnregisterEventHotKey(ref);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// Carbon virtual key codes (kVK_ANSI_*).
var darwinKeyCodes = map[string]C.UInt32{
	"A": 0x00, "S": 0x01, "D": 0x02, "F": 0x03, "H": 0x04, "G": 0x05, "Z": 0x06,
	"X": 0x07, "C": 0x08, "V": 0x09, "B": 0x0B, "Q": 0x0C, "W": 0x0D, "E": 0x0E,
	"R": 0x0F, "Y": 0x10, "T": 0x11, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"6": 0x16, "5": 0x17, "9": 0x19, "7": 0x1A, "8": 0x1C, "0": 0x1D, "O": 0x1F,
	"U": 0x20, "I": 0x22, "P": 0x23, "L": 0x25, "J": 0x26, "K": 0x28, "N": 0x2D,
	"M": 0x2E, "Space": 0x31,
	"F1": 0x7A, "F2": 0x78, "F3": 0x63, "F4": 0x76, "F5": 0x60, "F6": 0x61,
	"F7": 0x62, "F8": 0x64, "F9": 0x65, "F10": 0x6D, "F11": 0x67, "F12": 0x6F,
}

func carbonMods(m Modifier) C.UInt32 {
	var mods C.UInt32
	if m&ModSuper != 0 {
		mods |= 0x100 // cmdKey
	}
	if m&ModShift != 0 {
		mods |= 0x200 // shiftKey
	}
	if m&ModAlt != 0 {
		mods |= 0x800 // optionKey
	}
	if m&ModCtrl != 0 {
		mods |= 0x1000 // controlKey
	}
	return mods
}

type darwinHotkey struct {
	ref C.EventHotKeyRef
	cb  func(bool)
}

type darwinManager struct{}

var (
	registryMu sync.Mutex
	registry   = make(map[C.UInt32]*darwinHotkey)
	byAccel    = make(map[string]C.UInt32)
	nextID     C.UInt32
)

// New creates a new macOS hotkey manager using Carbon
func New() (Manager, error) {
	return &darwinManager{}, nil
}

//export goHotkeyCallback
func goHotkeyCallback(id C.UInt32, pressed C.int) {
	registryMu.Lock()
	hk := registry[id]
	registryMu.Unlock()
	if hk != nil && hk.cb != nil {
		hk.cb(pressed == 1)
	}
}

func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccel(accel)
	if err != nil {
		return err
	}
	code, ok := darwinKeyCodes[a.Key]
	if !ok {
		return fmt.Errorf("no key code for %s", a.Key)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	nextID++
	ref := C.registerHotkey(code, carbonMods(a.Mods), nextID)
	if ref == nil {
		return fmt.Errorf("failed to register %s", a)
	}
	registry[nextID] = &darwinHotkey{ref: ref, cb: callback}
	byAccel[a.String()] = nextID
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	a, err := ParseAccel(accel)
	if err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	id, ok := byAccel[a.String()]
	if !ok {
		return nil
	}
	C.unregisterHotkey(registry[id].ref)
	delete(registry, id)
	delete(byAccel, a.String())
	return nil
}

func (m *darwinManager) Close() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	for id, hk := range registry {
		C.unregisterHotkey(hk.ref)
		delete(registry, id)
	}
	byAccel = make(map[string]C.UInt32)
	return nil
}
