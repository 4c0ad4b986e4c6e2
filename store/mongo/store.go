package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/request"
	vaultstore "github.com/velora/vault/store"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

// Collection name constants.
const (
	colUsers           = "vault_users"
	colCategories      = "vault_categories"
	colImages          = "vault_images"
	colOrders          = "vault_orders"
	colUnlocks         = "vault_unlocks"
	colSubscriptions   = "vault_subscriptions"
	colFlashSales      = "vault_flash_sales"
	colDrips           = "vault_drips"
	colLoyaltyEntries  = "vault_loyalty_entries"
	colRequests        = "vault_requests"
	colPosts           = "vault_posts"
	colProcessedEvents = "vault_processed_events"
	colPendingEvents   = "vault_pending_events"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// The CAS transitions are filtered updates (expected state in the
// filter, MatchedCount decides the outcome); the loyalty balance moves
// through findOneAndUpdate with $inc so it stays atomic per document.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all vault collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("vault/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return vaultstore.ErrAlreadyExists
		}
		return fmt.Errorf("vault/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByChatID(ctx context.Context, chatID string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"chat_id": chatID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get user by chat id: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"referral_code": code}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get user by referral code: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update user: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	var models []userModel

	filter := bson.M{}
	if opts.Tier != "" {
		filter["tier"] = string(opts.Tier)
	}
	if opts.Banned != nil {
		filter["banned"] = *opts.Banned
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list users: %w", err)
	}

	result := make([]*user.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

// ==================== Catalog Store ====================

func (s *Store) CreateImage(ctx context.Context, img *catalog.Image) error {
	m := toImageModel(img)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create image: %w", err)
	}
	return nil
}

func (s *Store) GetImage(ctx context.Context, imageID id.ImageID) (*catalog.Image, error) {
	var m imageModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": imageID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrImageNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get image: %w", err)
	}
	return fromImageModel(&m)
}

func (s *Store) UpdateImage(ctx context.Context, img *catalog.Image) error {
	m := toImageModel(img)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update image: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrImageNotFound
	}
	return nil
}

func (s *Store) ListImages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Image, error) {
	var models []imageModel

	filter := bson.M{}
	if !opts.CategoryID.IsNil() {
		filter["category_id"] = opts.CategoryID.String()
	}
	if opts.ContentType != "" {
		filter["content_type"] = string(opts.ContentType)
	}
	if opts.ActiveOnly {
		filter["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list images: %w", err)
	}

	result := make([]*catalog.Image, len(models))
	for i := range models {
		img, err := fromImageModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = img
	}
	return result, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *catalog.Category) error {
	m := toCategoryModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID id.CategoryID) (*catalog.Category, error) {
	var m categoryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": categoryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get category: %w", err)
	}
	return fromCategoryModel(&m)
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]*catalog.Category, error) {
	var models []categoryModel

	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "sort_order", Value: 1}, {Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list categories: %w", err)
	}

	result := make([]*catalog.Category, len(models))
	for i := range models {
		c, err := fromCategoryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Order Store ====================

func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	var m orderModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": orderID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrOrderNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get order: %w", err)
	}
	return fromOrderModel(&m)
}

func (s *Store) GetOrderByProviderRef(ctx context.Context, ref string) (*order.Order, error) {
	if ref == "" {
		return nil, vaultstore.ErrOrderNotFound
	}
	var m orderModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"provider_ref": ref}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrOrderNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get order by provider ref: %w", err)
	}
	return fromOrderModel(&m)
}

func (s *Store) UpdateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update order: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrOrderNotFound
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	var models []orderModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list orders: %w", err)
	}

	result := make([]*order.Order, len(models))
	for i := range models {
		o, err := fromOrderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = o
	}
	return result, nil
}

// MarkOrderPaid moves awaiting_payment -> paid as a filtered update;
// the expected status rides in the filter so exactly one caller wins.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID id.OrderID, captureRef string, paidAt time.Time) error {
	res, err := s.mdb.NewUpdate((*orderModel)(nil)).
		Filter(bson.M{"_id": orderID.String(), "status": string(order.StatusAwaitingPayment)}).
		Set("status", string(order.StatusPaid)).
		Set("capture_ref", captureRef).
		Set("paid_at", paidAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: mark order paid: %w", err)
	}
	if res.MatchedCount() == 0 {
		cur, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, cur.Status, order.StatusPaid)
	}
	return nil
}

func (s *Store) FulfillOrder(ctx context.Context, orderID id.OrderID, fulfilledAt time.Time) error {
	res, err := s.mdb.NewUpdate((*orderModel)(nil)).
		Filter(bson.M{"_id": orderID.String(), "status": string(order.StatusPaid)}).
		Set("status", string(order.StatusFulfilled)).
		Set("fulfilled_at", fulfilledAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: fulfill order: %w", err)
	}
	if res.MatchedCount() == 0 {
		cur, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, cur.Status, order.StatusFulfilled)
	}
	return nil
}

func (s *Store) ExpireStaleOrders(ctx context.Context, cutoff time.Time) ([]id.OrderID, error) {
	var stale []orderModel
	err := s.mdb.NewFind(&stale).
		Filter(bson.M{
			"status":     bson.M{"$in": []string{string(order.StatusCreated), string(order.StatusAwaitingPayment)}},
			"created_at": bson.M{"$lte": cutoff},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: find stale orders: %w", err)
	}

	var ids []id.OrderID
	for i := range stale {
		res, err := s.mdb.NewUpdate((*orderModel)(nil)).
			Filter(bson.M{"_id": stale[i].ID, "status": stale[i].Status}).
			Set("status", string(order.StatusExpired)).
			Set("updated_at", now()).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault/mongo: expire order: %w", err)
		}
		if res.MatchedCount() == 0 {
			continue // paid or expired under us
		}
		orderID, err := id.ParseOrderID(stale[i].ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, orderID)
	}
	return ids, nil
}

// ==================== Unlock Store ====================

// GrantUnlock inserts the composite-keyed ownership document; a
// duplicate key error means the user already owns the image.
func (s *Store) GrantUnlock(ctx context.Context, u *unlock.Unlock) (bool, error) {
	m := toUnlockModel(u)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("vault/mongo: grant unlock: %w", err)
	}
	return true, nil
}

func (s *Store) HasUnlock(ctx context.Context, userID id.UserID, imageID id.ImageID) (bool, error) {
	var m unlockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": unlockDocID(userID.String(), imageID.String())}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("vault/mongo: has unlock: %w", err)
	}
	return true, nil
}

func (s *Store) ListUnlocks(ctx context.Context, userID id.UserID) ([]*unlock.Unlock, error) {
	var models []unlockModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID.String()}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list unlocks: %w", err)
	}

	result := make([]*unlock.Unlock, len(models))
	for i := range models {
		u, err := fromUnlockModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) CountUnlocks(ctx context.Context, imageID id.ImageID) (int64, error) {
	count, err := s.mdb.Collection(colUnlocks).CountDocuments(ctx, bson.M{"image_id": imageID.String()})
	if err != nil {
		return 0, fmt.Errorf("vault/mongo: count unlocks: %w", err)
	}
	return count, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID id.UserID, at time.Time) (*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"user_id":      userID.String(),
			"status":       string(subscription.StatusActive),
			"period_start": bson.M{"$lte": at},
			"period_end":   bson.M{"$gt": at},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: get active subscription: %w", err)
	}
	if len(models) == 0 {
		return nil, vaultstore.ErrSubscriptionNotFound
	}

	// Overlapping windows resolve to the highest tier.
	best, err := fromSubscriptionModel(&models[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(models); i++ {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		if sub.Tier.Rank() > best.Tier.Rank() {
			best = sub
		}
	}
	return best, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) ExpireEndedSubscriptions(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	var ended []subscriptionModel
	err := s.mdb.NewFind(&ended).
		Filter(bson.M{
			"status":     string(subscription.StatusActive),
			"period_end": bson.M{"$lte": cutoff},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: find ended subscriptions: %w", err)
	}

	var result []*subscription.Subscription
	for i := range ended {
		res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
			Filter(bson.M{"_id": ended[i].ID, "status": string(subscription.StatusActive)}).
			Set("status", string(subscription.StatusExpired)).
			Set("updated_at", now()).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault/mongo: expire subscription: %w", err)
		}
		if res.MatchedCount() == 0 {
			continue
		}
		ended[i].Status = string(subscription.StatusExpired)
		sub, err := fromSubscriptionModel(&ended[i])
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, nil
}

func (s *Store) ListExpiringSubscriptions(ctx context.Context, at time.Time, within time.Duration) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(subscription.StatusActive),
			"period_end": bson.M{"$gt": at, "$lte": at.Add(within)},
		}).
		Sort(bson.D{{Key: "period_end", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list expiring subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Flash Sale Store ====================

func (s *Store) CreateFlashSale(ctx context.Context, fs *promo.FlashSale) error {
	m := toFlashSaleModel(fs)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create flash sale: %w", err)
	}
	return nil
}

func (s *Store) GetFlashSale(ctx context.Context, saleID id.FlashSaleID) (*promo.FlashSale, error) {
	var m flashSaleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": saleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrFlashSaleNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get flash sale: %w", err)
	}
	return fromFlashSaleModel(&m)
}

func (s *Store) UpdateFlashSale(ctx context.Context, fs *promo.FlashSale) error {
	m := toFlashSaleModel(fs)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update flash sale: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrFlashSaleNotFound
	}
	return nil
}

func (s *Store) ListFlashSales(ctx context.Context, opts promo.ListOpts) ([]*promo.FlashSale, error) {
	var models []flashSaleModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "starts_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list flash sales: %w", err)
	}

	result := make([]*promo.FlashSale, len(models))
	for i := range models {
		fs, err := fromFlashSaleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = fs
	}
	return result, nil
}

func (s *Store) ListRunningFlashSales(ctx context.Context, t time.Time) ([]*promo.FlashSale, error) {
	var models []flashSaleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"starts_at": bson.M{"$lte": t},
			"ends_at":   bson.M{"$gt": t},
		}).
		Sort(bson.D{{Key: "starts_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list running flash sales: %w", err)
	}

	result := make([]*promo.FlashSale, len(models))
	for i := range models {
		fs, err := fromFlashSaleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = fs
	}
	return result, nil
}

func (s *Store) MarkFlashSaleAnnounced(ctx context.Context, saleID id.FlashSaleID) (bool, error) {
	res, err := s.mdb.NewUpdate((*flashSaleModel)(nil)).
		Filter(bson.M{"_id": saleID.String(), "announced": false}).
		Set("announced", true).
		Set("status", string(promo.StatusActive)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("vault/mongo: mark flash sale announced: %w", err)
	}
	return res.MatchedCount() > 0, nil
}

func (s *Store) ExpireEndedFlashSales(ctx context.Context, cutoff time.Time) ([]*promo.FlashSale, error) {
	var ended []flashSaleModel
	err := s.mdb.NewFind(&ended).
		Filter(bson.M{
			"status":  bson.M{"$ne": string(promo.StatusExpired)},
			"ends_at": bson.M{"$lte": cutoff},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: find ended flash sales: %w", err)
	}

	var result []*promo.FlashSale
	for i := range ended {
		res, err := s.mdb.NewUpdate((*flashSaleModel)(nil)).
			Filter(bson.M{"_id": ended[i].ID, "status": bson.M{"$ne": string(promo.StatusExpired)}}).
			Set("status", string(promo.StatusExpired)).
			Set("updated_at", now()).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault/mongo: expire flash sale: %w", err)
		}
		if res.MatchedCount() == 0 {
			continue
		}
		ended[i].Status = string(promo.StatusExpired)
		fs, err := fromFlashSaleModel(&ended[i])
		if err != nil {
			return nil, err
		}
		result = append(result, fs)
	}
	return result, nil
}

// ==================== Drip Store ====================

func (s *Store) CreateDrip(ctx context.Context, sched *drip.Schedule) error {
	m := toDripModel(sched)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create drip: %w", err)
	}
	return nil
}

func (s *Store) GetDrip(ctx context.Context, dripID id.DripID) (*drip.Schedule, error) {
	var m dripModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": dripID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrDripNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get drip: %w", err)
	}
	return fromDripModel(&m)
}

func (s *Store) UpdateDrip(ctx context.Context, sched *drip.Schedule) error {
	m := toDripModel(sched)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update drip: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrDripNotFound
	}
	return nil
}

func (s *Store) ListDrips(ctx context.Context, opts drip.ListOpts) ([]*drip.Schedule, error) {
	var models []dripModel

	filter := bson.M{}
	if opts.Delivered != nil {
		filter["delivered"] = *opts.Delivered
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "release_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list drips: %w", err)
	}

	result := make([]*drip.Schedule, len(models))
	for i := range models {
		sched, err := fromDripModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sched
	}
	return result, nil
}

func (s *Store) ListDueDrips(ctx context.Context, t time.Time) ([]*drip.Schedule, error) {
	var models []dripModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"delivered":  false,
			"release_at": bson.M{"$lte": t},
		}).
		Sort(bson.D{{Key: "release_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list due drips: %w", err)
	}

	result := make([]*drip.Schedule, len(models))
	for i := range models {
		sched, err := fromDripModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sched
	}
	return result, nil
}

func (s *Store) MarkDripDelivered(ctx context.Context, dripID id.DripID, at time.Time) (bool, error) {
	res, err := s.mdb.NewUpdate((*dripModel)(nil)).
		Filter(bson.M{"_id": dripID.String(), "delivered": false}).
		Set("delivered", true).
		Set("delivered_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("vault/mongo: mark drip delivered: %w", err)
	}
	return res.MatchedCount() > 0, nil
}

// ==================== Loyalty Store ====================

// CreditPoints bumps the balance through findOneAndUpdate with $inc so
// the increment and the read of the new balance are one atomic step,
// then appends the ledger entry.
func (s *Store) CreditPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, orderID id.OrderID, note string) (*loyalty.Entry, error) {
	var updated userModel
	err := s.mdb.Collection(colUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": userID.String()},
		bson.M{
			"$inc": bson.M{"points_balance": delta},
			"$set": bson.M{"updated_at": now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("vault/mongo: credit points: %w", err)
	}

	entry := &loyalty.Entry{
		Entity:  types.NewEntity(),
		ID:      id.NewLoyaltyEntryID(),
		UserID:  userID,
		Delta:   delta,
		Balance: updated.PointsBalance,
		Reason:  reason,
		OrderID: orderID,
		Note:    note,
	}
	if _, err := s.mdb.NewInsert(toLoyaltyEntryModel(entry)).Exec(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: append ledger entry: %w", err)
	}
	return entry, nil
}

// DebitPoints adds a balance guard to the filter so an overdraft
// matches nothing.
func (s *Store) DebitPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, note string) (*loyalty.Entry, error) {
	var updated userModel
	err := s.mdb.Collection(colUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": userID.String(), "points_balance": bson.M{"$gte": delta}},
		bson.M{
			"$inc": bson.M{"points_balance": -delta},
			"$set": bson.M{"updated_at": now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			if _, gerr := s.GetUser(ctx, userID); gerr != nil {
				return nil, gerr
			}
			return nil, vaultstore.ErrInsufficientPoints
		}
		return nil, fmt.Errorf("vault/mongo: debit points: %w", err)
	}

	entry := &loyalty.Entry{
		Entity:  types.NewEntity(),
		ID:      id.NewLoyaltyEntryID(),
		UserID:  userID,
		Delta:   -delta,
		Balance: updated.PointsBalance,
		Reason:  reason,
		Note:    note,
	}
	if _, err := s.mdb.NewInsert(toLoyaltyEntryModel(entry)).Exec(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: append ledger entry: %w", err)
	}
	return entry, nil
}

func (s *Store) PointsBalance(ctx context.Context, userID id.UserID) (int64, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.PointsBalance, nil
}

func (s *Store) ListLoyaltyEntries(ctx context.Context, userID id.UserID, opts loyalty.ListOpts) ([]*loyalty.Entry, error) {
	var models []loyaltyEntryModel

	filter := bson.M{"user_id": userID.String()}
	if opts.Reason != "" {
		filter["reason"] = string(opts.Reason)
	}
	if !opts.OrderID.IsNil() {
		filter["order_id"] = opts.OrderID.String()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list loyalty entries: %w", err)
	}

	result := make([]*loyalty.Entry, len(models))
	for i := range models {
		e, err := fromLoyaltyEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Custom Request Store ====================

func (s *Store) CreateRequest(ctx context.Context, r *request.CustomRequest) error {
	m := toRequestModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, requestID id.CustomRequestID) (*request.CustomRequest, error) {
	var m requestModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": requestID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrRequestNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get request: %w", err)
	}
	return fromRequestModel(&m)
}

func (s *Store) UpdateRequest(ctx context.Context, r *request.CustomRequest) error {
	m := toRequestModel(r)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update request: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrRequestNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, opts request.ListOpts) ([]*request.CustomRequest, error) {
	var models []requestModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list requests: %w", err)
	}

	result := make([]*request.CustomRequest, len(models))
	for i := range models {
		r, err := fromRequestModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Scheduled Post Store ====================

func (s *Store) CreatePost(ctx context.Context, p *post.ScheduledPost) error {
	m := toPostModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create post: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, postID id.ScheduledPostID) (*post.ScheduledPost, error) {
	var m postModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": postID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vaultstore.ErrPostNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get post: %w", err)
	}
	return fromPostModel(&m)
}

func (s *Store) UpdatePost(ctx context.Context, p *post.ScheduledPost) error {
	m := toPostModel(p)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update post: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrPostNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, opts post.ListOpts) ([]*post.ScheduledPost, error) {
	var models []postModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "post_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list posts: %w", err)
	}

	result := make([]*post.ScheduledPost, len(models))
	for i := range models {
		p, err := fromPostModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) ListDuePosts(ctx context.Context, t time.Time) ([]*post.ScheduledPost, error) {
	var models []postModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":  string(post.StatusPending),
			"post_at": bson.M{"$lte": t},
		}).
		Sort(bson.D{{Key: "post_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list due posts: %w", err)
	}

	result := make([]*post.ScheduledPost, len(models))
	for i := range models {
		p, err := fromPostModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Webhook Store ====================

// CheckAndRecordEvent inserts into the idempotency log; the unique key
// index turns a replay into a duplicate-key error.
func (s *Store) CheckAndRecordEvent(ctx context.Context, key string, eventType string) (bool, error) {
	m := &processedEventModel{
		ID:        id.NewWebhookEventID().String(),
		Key:       key,
		Type:      eventType,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("vault/mongo: record event: %w", err)
	}
	return true, nil
}

func (s *Store) PurgeProcessedEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*processedEventModel)(nil)).
		Filter(bson.M{"created_at": bson.M{"$lt": cutoff}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("vault/mongo: purge processed events: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) EnqueuePendingEvent(ctx context.Context, p *webhook.PendingEvent) error {
	if p.ID.IsNil() {
		p.ID = id.NewWebhookEventID()
	}
	if p.CreatedAt.IsZero() {
		p.Entity = types.NewEntity()
	}
	m := toPendingEventModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: enqueue pending event: %w", err)
	}
	return nil
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]*webhook.PendingEvent, error) {
	var models []pendingEventModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list pending events: %w", err)
	}

	result := make([]*webhook.PendingEvent, len(models))
	for i := range models {
		p, err := fromPendingEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePendingEvent(ctx context.Context, p *webhook.PendingEvent) error {
	m := toPendingEventModel(p)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update pending event: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vaultstore.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePendingEvent(ctx context.Context, eventID id.WebhookEventID) error {
	res, err := s.mdb.NewDelete((*pendingEventModel)(nil)).
		Filter(bson.M{"_id": eventID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: delete pending event: %w", err)
	}
	if res.DeletedCount() == 0 {
		return vaultstore.ErrNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all vault collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "chat_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "referral_code", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{Keys: bson.D{{Key: "tier", Value: 1}}},
		},
		colCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		},
		colImages: {
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "content_type", Value: 1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{
				Keys:    bson.D{{Key: "provider_ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		colUnlocks: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "image_id", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "period_end", Value: 1}}},
		},
		colFlashSales: {
			{Keys: bson.D{{Key: "starts_at", Value: 1}, {Key: "ends_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
		},
		colDrips: {
			{Keys: bson.D{{Key: "delivered", Value: 1}, {Key: "release_at", Value: 1}}},
		},
		colLoyaltyEntries: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colRequests: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colPosts: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "post_at", Value: 1}}},
		},
		colProcessedEvents: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colPendingEvents: {
			{Keys: bson.D{{Key: "reconciliation", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
