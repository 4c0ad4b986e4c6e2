// Package deliver defines the outbound capability interfaces: chat
// delivery to buyers and publication to public channels.
//
// Private and public content live in separate storage namespaces; a
// Deliverer implementation must never read from the private namespace
// when publishing.
package deliver

import (
	"context"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/types"
)

// Unlock is fulfilled content sent to a buyer in chat. URL is the
// resolved content location, set when the engine has an object store;
// otherwise the deliverer resolves Image.StorageKey itself.
type Unlock struct {
	ChatID  string
	Image   *catalog.Image
	URL     string
	Caption string
}

// Preview is a locked teaser sent to non-paying audiences: no content,
// just the pitch and the price.
type Preview struct {
	ChatID string
	Image  *catalog.Image
	Teaser string
	Price  types.Money
}

// Deliverer sends content to buyers over the chat transport. The
// engine calls it only after an order reaches fulfilled, or for drip
// perks to entitled tiers.
type Deliverer interface {
	DeliverUnlock(ctx context.Context, u Unlock) error
	DeliverPreview(ctx context.Context, p Preview) error
	Notify(ctx context.Context, chatID string, message string) error
}

// Publisher posts to a public channel. Callers must pass the safety
// guard before invoking it; implementations read only from the public
// storage namespace.
type Publisher interface {
	PublishPost(ctx context.Context, img *catalog.Image, caption string) error
}

// ObjectStore resolves storage keys to content, namespaced by content
// type so private and public assets cannot be confused.
type ObjectStore interface {
	SignedURL(ctx context.Context, contentType catalog.ContentType, storageKey string) (string, error)
}
