//go:build !darwin

package permissions

import "context"

// RequestMicrophone is a no-op on non-macOS platforms; device access is
// governed by the audio server there.
func RequestMicrophone(ctx context.Context) error {
	return ctx.Err()
}
