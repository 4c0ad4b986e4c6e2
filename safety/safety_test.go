package safety

import (
	"errors"
	"testing"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/id"
)

func TestAssertPublicSafe(t *testing.T) {
	tests := []struct {
		name string
		img  *catalog.Image
		ok   bool
	}{
		{"instagram cleared", &catalog.Image{ID: id.NewImageID(), ContentType: catalog.ContentInstagram}, true},
		{"private blocked", &catalog.Image{ID: id.NewImageID(), ContentType: catalog.ContentPrivate}, false},
		{"unclassified blocked", &catalog.Image{ID: id.NewImageID()}, false},
		{"unknown type blocked", &catalog.Image{ID: id.NewImageID(), ContentType: "public"}, false},
		{"nil image blocked", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertPublicSafe(tt.img)
			if tt.ok && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected violation")
				}
				if !errors.Is(err, ErrViolation) {
					t.Errorf("expected ErrViolation, got %v", err)
				}
			}
		})
	}
}
