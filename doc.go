// Package vault provides a purchase-and-fulfillment engine for selling
// unlockable image content through a chat bot.
//
// Vault is designed as a library, not a service. Import it directly into your
// Go application and wire in the payment provider and chat transport. It
// provides:
//
//   - Idempotent payment webhook processing with bounded retry and
//     reconciliation flagging
//   - A closed order lifecycle state machine (created through fulfilled)
//   - Flash-sale pricing with category scoping and a minimum-price floor
//   - Loyalty points, spend-based tiers, and a redeemable reward catalog
//   - Tier subscriptions with fixed renewal windows
//   - Drip releases to tiered audiences and a guarded public posting queue
//   - Pluggable payment provider integration (PayPal built-in)
//
// # Quick Start
//
// Create an engine with your preferred store and provider:
//
//	import (
//	    "github.com/velora/vault"
//	    "github.com/velora/vault/provider/paypal"
//	    "github.com/velora/vault/store/postgres"
//	)
//
//	// Initialize store on a grove database
//	st := postgres.New(db)
//
//	// Payment provider doubles as the webhook verifier
//	pp := paypal.New(clientID, secret, webhookID)
//
//	// Create the engine
//	v := vault.New(st, pp, pp)
//
//	// Start it (runs migrations and background jobs)
//	if err := v.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Stop()
//
// # Core Concepts
//
// Users register through the chat bot and earn loyalty tiers by spending:
//
//	u, err := v.RegisterUser(ctx, chatID, username, displayName, referrerID)
//
// Checkout quotes an image against running flash sales and opens a payment:
//
//	res, err := v.Checkout(ctx, u.ID, imageID)
//	// send res.ApproveURL to the buyer
//
// Payment confirmation arrives over webhooks; the transport layer passes
// deliveries straight through:
//
//	err := v.HandleWebhook(ctx, body, headers)
//
// Every accepted event is processed at most once regardless of provider
// redelivery, and settlement (ownership grant, points, tier, delivery) is
// idempotent end to end.
//
// # Content Safety
//
// Content defaults to private and is sold only through the bot. The single
// path to a public channel is an explicit admin classification plus the
// safety guard, which every posting path asserts with no bypass.
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	ord_01h2xcejqtf2nbrexx3vqjhp41   // Order ID
//	img_01h2xcejqtf2nbrexx3vqjhp41   // Image ID
//	user_01h455vb4pex5vsknk084sn02q  // User ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package vault
