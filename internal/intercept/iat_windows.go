//go:build windows

package intercept

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	// ErrImportNotFound is returned when the module does not import the entry point
	ErrImportNotFound = errors.New("import not found")

	errBadImage = errors.New("malformed PE image")
)

const (
	imageDOSSignature    = 0x5A4D
	imageNTSignature     = 0x00004550
	imageNTOptional32    = 0x10b
	imageNTOptional64    = 0x20b
	importDirectoryIndex = 1
)

// IATPatcher redirects entries in a loaded module's import address table.
type IATPatcher struct {
	base uintptr
	dll  string

	mu    sync.Mutex
	slots map[string]*uintptr
}

// NewIATPatcher patches imports of dll made by the module at base. A zero
// base selects the process executable.
func NewIATPatcher(base windows.Handle, dll string) (*IATPatcher, error) {
	if base == 0 {
		if err := windows.GetModuleHandleEx(0, nil, &base); err != nil {
			return nil, fmt.Errorf("locate executable module: %w", err)
		}
	}
	return &IATPatcher{
		base:  uintptr(base),
		dll:   dll,
		slots: make(map[string]*uintptr),
	}, nil
}

// Swap implements Patcher.
func (p *IATPatcher) Swap(name string, replacement uintptr) (uintptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.slots[name]
	if !ok {
		proc := windows.NewLazySystemDLL(p.dll).NewProc(name)
		if err := proc.Find(); err != nil {
			return 0, err
		}
		var err error
		slot, err = p.findSlot(proc.Addr())
		if err != nil {
			return 0, fmt.Errorf("%s!%s: %w", p.dll, name, err)
		}
		p.slots[name] = slot
	}

	original := *slot
	if err := writeSlot(slot, replacement); err != nil {
		return 0, err
	}
	return original, nil
}

// Restore implements Patcher.
func (p *IATPatcher) Restore(name string, original uintptr) error {
	p.mu.Lock()
	slot, ok := p.slots[name]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s!%s: %w", p.dll, name, ErrImportNotFound)
	}
	return writeSlot(slot, original)
}

func writeSlot(slot *uintptr, value uintptr) error {
	var old uint32
	size := unsafe.Sizeof(*slot)
	if err := windows.VirtualProtect(uintptr(unsafe.Pointer(slot)), size, windows.PAGE_READWRITE, &old); err != nil {
		return fmt.Errorf("unprotect import slot: %w", err)
	}
	*slot = value
	return windows.VirtualProtect(uintptr(unsafe.Pointer(slot)), size, old, &old)
}

// findSlot walks the import descriptors for p.dll and returns the IAT entry
// currently resolved to addr.
func (p *IATPatcher) findSlot(addr uintptr) (*uintptr, error) {
	if *(*uint16)(p.at(0)) != imageDOSSignature {
		return nil, errBadImage
	}
	nt := *(*uint32)(p.at(0x3C))
	if *(*uint32)(p.at(nt)) != imageNTSignature {
		return nil, errBadImage
	}

	optional := nt + 4 + 20
	var dirOffset uint32
	switch *(*uint16)(p.at(optional)) {
	case imageNTOptional32:
		dirOffset = optional + 96
	case imageNTOptional64:
		dirOffset = optional + 112
	default:
		return nil, errBadImage
	}

	importRVA := *(*uint32)(p.at(dirOffset + importDirectoryIndex*8))
	if importRVA == 0 {
		return nil, ErrImportNotFound
	}

	for desc := importRVA; ; desc += 20 {
		nameRVA := *(*uint32)(p.at(desc + 12))
		firstThunk := *(*uint32)(p.at(desc + 16))
		if nameRVA == 0 && firstThunk == 0 {
			break
		}
		if !strings.EqualFold(windows.BytePtrToString((*byte)(p.at(nameRVA))), p.dll) {
			continue
		}
		for thunk := firstThunk; ; thunk += uint32(unsafe.Sizeof(uintptr(0))) {
			slot := (*uintptr)(p.at(thunk))
			if *slot == 0 {
				break
			}
			if *slot == addr {
				return slot, nil
			}
		}
	}
	return nil, ErrImportNotFound
}

func (p *IATPatcher) at(rva uint32) unsafe.Pointer {
	return unsafe.Pointer(p.base + uintptr(rva))
}
