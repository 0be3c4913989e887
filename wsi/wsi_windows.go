// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"errors"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procRegisterClassExW = user32.NewProc("RegisterClassExW")
	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procSetWindowTextW   = user32.NewProc("SetWindowTextW")
	procSetWindowPos     = user32.NewProc("SetWindowPos")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procAdjustWindowRect = user32.NewProc("AdjustWindowRect")
)

const (
	wsOverlappedWindow = 0x00cf0000

	swHide = 0
	swShow = 5

	swpNoMove   = 0x0002
	swpNoZOrder = 0x0004
)

type wndClassEx struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

type rect struct {
	left, top, right, bottom int32
}

var (
	classOnce sync.Once
	className *uint16
	classErr  error
)

// registerClass registers the window class shared by all
// windows created by this package. Events are left to the
// default procedure; this package does not pump messages.
func registerClass() {
	name, err := windows.UTF16PtrFromString("ember.wsi")
	if err != nil {
		classErr = err
		return
	}
	inst, err := windows.GetModuleHandle(nil)
	if err != nil {
		classErr = err
		return
	}
	wc := wndClassEx{
		size:      uint32(unsafe.Sizeof(wndClassEx{})),
		wndProc:   procDefWindowProcW.Addr(),
		instance:  inst,
		className: name,
	}
	if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		classErr = errors.Join(ErrNotSupported, err)
		return
	}
	className = name
}

// win32Window implements Window for the Win32 platform.
type win32Window struct {
	hwnd          windows.Handle
	width, height int
	title         string
}

func newWindow(width, height int, title string) (Window, error) {
	classOnce.Do(registerClass)
	if classErr != nil {
		return nil, classErr
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("wsi: invalid size")
	}
	t, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return nil, err
	}
	inst, err := windows.GetModuleHandle(nil)
	if err != nil {
		return nil, err
	}
	r := rect{right: int32(width), bottom: int32(height)}
	procAdjustWindowRect.Call(uintptr(unsafe.Pointer(&r)), wsOverlappedWindow, 0)
	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(t)),
		wsOverlappedWindow,
		0, 0,
		uintptr(r.right-r.left),
		uintptr(r.bottom-r.top),
		0, 0,
		uintptr(inst),
		0)
	if hwnd == 0 {
		return nil, errors.Join(ErrNotSupported, err)
	}
	return &win32Window{
		hwnd:   windows.Handle(hwnd),
		width:  width,
		height: height,
		title:  title,
	}, nil
}

func (w *win32Window) Map() error {
	procShowWindow.Call(uintptr(w.hwnd), swShow)
	return nil
}

func (w *win32Window) Unmap() error {
	procShowWindow.Call(uintptr(w.hwnd), swHide)
	return nil
}

func (w *win32Window) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("wsi: invalid size")
	}
	r := rect{right: int32(width), bottom: int32(height)}
	procAdjustWindowRect.Call(uintptr(unsafe.Pointer(&r)), wsOverlappedWindow, 0)
	if r, _, err := procSetWindowPos.Call(
		uintptr(w.hwnd), 0, 0, 0,
		uintptr(r.right-r.left),
		uintptr(r.bottom-r.top),
		swpNoMove|swpNoZOrder); r == 0 {
		return err
	}
	w.width, w.height = width, height
	return nil
}

func (w *win32Window) SetTitle(title string) error {
	t, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	if r, _, err := procSetWindowTextW.Call(uintptr(w.hwnd), uintptr(unsafe.Pointer(t))); r == 0 {
		return err
	}
	w.title = title
	return nil
}

func (w *win32Window) Close() {
	if w.hwnd != 0 {
		procDestroyWindow.Call(uintptr(w.hwnd))
		w.hwnd = 0
	}
}

func (w *win32Window) Width() int      { return w.width }
func (w *win32Window) Height() int     { return w.height }
func (w *win32Window) Title() string   { return w.title }
func (w *win32Window) Handle() uintptr { return uintptr(w.hwnd) }
