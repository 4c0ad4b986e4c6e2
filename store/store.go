package store

import (
	"context"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/request"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

// Store is the unified storage interface for all Vault entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Methods documented as atomic (the CAS transitions, the idempotency
// check-and-set, the loyalty credit/debit) must hold under concurrent
// callers in every backend.
type Store interface {
	// User methods
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userID id.UserID) (*user.User, error)
	GetUserByChatID(ctx context.Context, chatID string) (*user.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error)

	// Catalog methods
	CreateImage(ctx context.Context, img *catalog.Image) error
	GetImage(ctx context.Context, imageID id.ImageID) (*catalog.Image, error)
	UpdateImage(ctx context.Context, img *catalog.Image) error
	ListImages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Image, error)
	CreateCategory(ctx context.Context, c *catalog.Category) error
	GetCategory(ctx context.Context, categoryID id.CategoryID) (*catalog.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*catalog.Category, error)

	// Order methods
	CreateOrder(ctx context.Context, o *order.Order) error
	GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error)
	GetOrderByProviderRef(ctx context.Context, ref string) (*order.Order, error)
	UpdateOrder(ctx context.Context, o *order.Order) error
	ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error)
	MarkOrderPaid(ctx context.Context, orderID id.OrderID, captureRef string, paidAt time.Time) error
	FulfillOrder(ctx context.Context, orderID id.OrderID, fulfilledAt time.Time) error
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) ([]id.OrderID, error)

	// Unlock methods
	GrantUnlock(ctx context.Context, u *unlock.Unlock) (bool, error)
	HasUnlock(ctx context.Context, userID id.UserID, imageID id.ImageID) (bool, error)
	ListUnlocks(ctx context.Context, userID id.UserID) ([]*unlock.Unlock, error)
	CountUnlocks(ctx context.Context, imageID id.ImageID) (int64, error)

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID id.UserID, at time.Time) (*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	ExpireEndedSubscriptions(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error)
	ListExpiringSubscriptions(ctx context.Context, at time.Time, within time.Duration) ([]*subscription.Subscription, error)

	// Flash sale methods
	CreateFlashSale(ctx context.Context, fs *promo.FlashSale) error
	GetFlashSale(ctx context.Context, saleID id.FlashSaleID) (*promo.FlashSale, error)
	UpdateFlashSale(ctx context.Context, fs *promo.FlashSale) error
	ListFlashSales(ctx context.Context, opts promo.ListOpts) ([]*promo.FlashSale, error)
	ListRunningFlashSales(ctx context.Context, t time.Time) ([]*promo.FlashSale, error)
	MarkFlashSaleAnnounced(ctx context.Context, saleID id.FlashSaleID) (bool, error)
	ExpireEndedFlashSales(ctx context.Context, cutoff time.Time) ([]*promo.FlashSale, error)

	// Drip methods
	CreateDrip(ctx context.Context, s *drip.Schedule) error
	GetDrip(ctx context.Context, dripID id.DripID) (*drip.Schedule, error)
	UpdateDrip(ctx context.Context, s *drip.Schedule) error
	ListDrips(ctx context.Context, opts drip.ListOpts) ([]*drip.Schedule, error)
	ListDueDrips(ctx context.Context, t time.Time) ([]*drip.Schedule, error)
	MarkDripDelivered(ctx context.Context, dripID id.DripID, at time.Time) (bool, error)

	// Loyalty methods
	CreditPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, orderID id.OrderID, note string) (*loyalty.Entry, error)
	DebitPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, note string) (*loyalty.Entry, error)
	PointsBalance(ctx context.Context, userID id.UserID) (int64, error)
	ListLoyaltyEntries(ctx context.Context, userID id.UserID, opts loyalty.ListOpts) ([]*loyalty.Entry, error)

	// Custom request methods
	CreateRequest(ctx context.Context, r *request.CustomRequest) error
	GetRequest(ctx context.Context, requestID id.CustomRequestID) (*request.CustomRequest, error)
	UpdateRequest(ctx context.Context, r *request.CustomRequest) error
	ListRequests(ctx context.Context, opts request.ListOpts) ([]*request.CustomRequest, error)

	// Scheduled post methods
	CreatePost(ctx context.Context, p *post.ScheduledPost) error
	GetPost(ctx context.Context, postID id.ScheduledPostID) (*post.ScheduledPost, error)
	UpdatePost(ctx context.Context, p *post.ScheduledPost) error
	ListPosts(ctx context.Context, opts post.ListOpts) ([]*post.ScheduledPost, error)
	ListDuePosts(ctx context.Context, t time.Time) ([]*post.ScheduledPost, error)

	// Webhook methods
	CheckAndRecordEvent(ctx context.Context, key string, eventType string) (bool, error)
	PurgeProcessedEvents(ctx context.Context, cutoff time.Time) (int64, error)
	EnqueuePendingEvent(ctx context.Context, p *webhook.PendingEvent) error
	ListPendingEvents(ctx context.Context, limit int) ([]*webhook.PendingEvent, error)
	UpdatePendingEvent(ctx context.Context, p *webhook.PendingEvent) error
	DeletePendingEvent(ctx context.Context, eventID id.WebhookEventID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
