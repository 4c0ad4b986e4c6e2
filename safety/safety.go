// Package safety guards every public posting path.
//
// Content defaults to private. The only way an image reaches a public
// channel is an explicit instagram classification; the guard refuses
// everything else. Callers must assert before publishing, with no
// bypass parameter.
package safety

import (
	"errors"
	"fmt"

	"github.com/velora/vault/catalog"
)

// ErrViolation means a private image was about to reach a public surface.
var ErrViolation = errors.New("vault: content blocked from public posting")

// AssertPublicSafe returns ErrViolation unless img has been explicitly
// classified for public posting.
func AssertPublicSafe(img *catalog.Image) error {
	if img == nil {
		return fmt.Errorf("%w: no image", ErrViolation)
	}
	if !img.PublicSafe() {
		return fmt.Errorf("%w: image %s is %q", ErrViolation, img.ID, img.ContentType)
	}
	return nil
}
