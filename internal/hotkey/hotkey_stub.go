//go:build !cgo || nohotkey || (!linux && !darwin)

package hotkey

// New reports that this build has no global hotkey backend.
func New() (Manager, error) {
	return nil, ErrUnsupported
}
