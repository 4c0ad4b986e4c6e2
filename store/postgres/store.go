package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

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

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// The CAS transitions (MarkOrderPaid, FulfillOrder, the announced and
// delivered flags) are single UPDATE statements guarded by the
// expected current state, so they hold under concurrent callers
// without explicit locking.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("vault/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("vault/postgres: migration failed: %w", err)
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
	existing := new(userModel)
	err := s.pg.NewSelect(existing).
		Where("chat_id = $1", u.ChatID).
		Scan(ctx)
	if err == nil {
		return vaultstore.ErrAlreadyExists
	}
	if !isNoRows(err) {
		return err
	}

	m := toUserModel(u)
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", userID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) GetUserByChatID(ctx context.Context, chatID string) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("chat_id = $1", chatID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("referral_code = $1", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	var models []userModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Tier != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("tier = $%d", argIdx), string(opts.Tier))
	}
	if opts.Banned != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("banned = $%d", argIdx), *opts.Banned)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetImage(ctx context.Context, imageID id.ImageID) (*catalog.Image, error) {
	m := new(imageModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", imageID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrImageNotFound
		}
		return nil, err
	}
	return fromImageModel(m)
}

func (s *Store) UpdateImage(ctx context.Context, img *catalog.Image) error {
	m := toImageModel(img)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrImageNotFound
	}
	return nil
}

func (s *Store) ListImages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Image, error) {
	var models []imageModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.CategoryID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("category_id = $%d", argIdx), opts.CategoryID.String())
	}
	if opts.ContentType != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("content_type = $%d", argIdx), string(opts.ContentType))
	}
	if opts.ActiveOnly {
		argIdx++
		q = q.Where(fmt.Sprintf("active = $%d", argIdx), true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCategory(ctx context.Context, categoryID id.CategoryID) (*catalog.Category, error) {
	m := new(categoryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", categoryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrCategoryNotFound
		}
		return nil, err
	}
	return fromCategoryModel(m)
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]*catalog.Category, error) {
	var models []categoryModel
	q := s.pg.NewSelect(&models)
	if activeOnly {
		q = q.Where("active = $1", true)
	}
	q = q.OrderExpr("sort_order ASC, created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	m := new(orderModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", orderID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrOrderNotFound
		}
		return nil, err
	}
	return fromOrderModel(m)
}

func (s *Store) GetOrderByProviderRef(ctx context.Context, ref string) (*order.Order, error) {
	if ref == "" {
		return nil, vaultstore.ErrOrderNotFound
	}
	m := new(orderModel)
	err := s.pg.NewSelect(m).
		Where("provider_ref = $1", ref).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrOrderNotFound
		}
		return nil, err
	}
	return fromOrderModel(m)
}

func (s *Store) UpdateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrOrderNotFound
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	var models []orderModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.UserID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// MarkOrderPaid moves awaiting_payment -> paid in a single guarded
// UPDATE. Zero rows means either the order is missing or its status is
// not awaiting_payment; the follow-up read distinguishes the two.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID id.OrderID, captureRef string, paidAt time.Time) error {
	res, err := s.pg.NewUpdate((*orderModel)(nil)).
		Set("status = $1", string(order.StatusPaid)).
		Set("capture_ref = $2", captureRef).
		Set("paid_at = $3", paidAt).
		Set("updated_at = $4", now()).
		Where("id = $5", orderID.String()).
		Where("status = $6", string(order.StatusAwaitingPayment)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		cur, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, cur.Status, order.StatusPaid)
	}
	return nil
}

// FulfillOrder moves paid -> fulfilled. Same guarded-UPDATE shape as
// MarkOrderPaid; every settlement races through here and exactly one
// caller wins.
func (s *Store) FulfillOrder(ctx context.Context, orderID id.OrderID, fulfilledAt time.Time) error {
	res, err := s.pg.NewUpdate((*orderModel)(nil)).
		Set("status = $1", string(order.StatusFulfilled)).
		Set("fulfilled_at = $2", fulfilledAt).
		Set("updated_at = $3", now()).
		Where("id = $4", orderID.String()).
		Where("status = $5", string(order.StatusPaid)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		cur, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, cur.Status, order.StatusFulfilled)
	}
	return nil
}

func (s *Store) ExpireStaleOrders(ctx context.Context, cutoff time.Time) ([]id.OrderID, error) {
	var expired []string
	err := s.pg.NewRaw(`
		UPDATE vault_orders SET status = $1, updated_at = $2
		WHERE status IN ($3, $4) AND created_at <= $5
		RETURNING id
	`, string(order.StatusExpired), now(),
		string(order.StatusCreated), string(order.StatusAwaitingPayment),
		cutoff).Scan(ctx, &expired)
	if err != nil {
		return nil, err
	}

	ids := make([]id.OrderID, len(expired))
	for i, raw := range expired {
		orderID, err := id.ParseOrderID(raw)
		if err != nil {
			return nil, err
		}
		ids[i] = orderID
	}
	return ids, nil
}

// ==================== Unlock Store ====================

// GrantUnlock inserts the ownership row if the user does not already
// own the image. ON CONFLICT DO NOTHING makes the grant idempotent; the
// bool reports whether this call created the row.
func (s *Store) GrantUnlock(ctx context.Context, u *unlock.Unlock) (bool, error) {
	m := toUnlockModel(u)
	res, err := s.pg.NewInsert(m).
		OnConflict("(user_id, image_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) HasUnlock(ctx context.Context, userID id.UserID, imageID id.ImageID) (bool, error) {
	m := new(unlockModel)
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID.String()).
		Where("image_id = $2", imageID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ListUnlocks(ctx context.Context, userID id.UserID) ([]*unlock.Unlock, error) {
	var models []unlockModel
	err := s.pg.NewSelect(&models).
		Where("user_id = $1", userID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	var count int64
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM vault_unlocks WHERE image_id = $1
	`, imageID.String()).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID id.UserID, at time.Time) (*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.pg.NewSelect(&models).
		Where("user_id = $1", userID.String()).
		Where("status = $2", string(subscription.StatusActive)).
		Where("period_start <= $3", at).
		Where("period_end > $4", at).
		Scan(ctx)
	if err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.UserID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	err := s.pg.NewSelect(&ended).
		Where("status = $1", string(subscription.StatusActive)).
		Where("period_end <= $2", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var result []*subscription.Subscription
	for i := range ended {
		res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
			Set("status = $1", string(subscription.StatusExpired)).
			Set("updated_at = $2", now()).
			Where("id = $3", ended[i].ID).
			Where("status = $4", string(subscription.StatusActive)).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			continue // lost the race to another expirer
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
	err := s.pg.NewSelect(&models).
		Where("status = $1", string(subscription.StatusActive)).
		Where("period_end > $2", at).
		Where("period_end <= $3", at.Add(within)).
		OrderExpr("period_end ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetFlashSale(ctx context.Context, saleID id.FlashSaleID) (*promo.FlashSale, error) {
	m := new(flashSaleModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", saleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrFlashSaleNotFound
		}
		return nil, err
	}
	return fromFlashSaleModel(m)
}

func (s *Store) UpdateFlashSale(ctx context.Context, fs *promo.FlashSale) error {
	m := toFlashSaleModel(fs)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrFlashSaleNotFound
	}
	return nil
}

func (s *Store) ListFlashSales(ctx context.Context, opts promo.ListOpts) ([]*promo.FlashSale, error) {
	var models []flashSaleModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("starts_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	err := s.pg.NewSelect(&models).
		Where("starts_at <= $1", t).
		Where("ends_at > $2", t).
		OrderExpr("starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

// MarkFlashSaleAnnounced flips the announced flag exactly once; the
// winner also moves the sale to active.
func (s *Store) MarkFlashSaleAnnounced(ctx context.Context, saleID id.FlashSaleID) (bool, error) {
	res, err := s.pg.NewUpdate((*flashSaleModel)(nil)).
		Set("announced = $1", true).
		Set("status = $2", string(promo.StatusActive)).
		Set("updated_at = $3", now()).
		Where("id = $4", saleID.String()).
		Where("announced = $5", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ExpireEndedFlashSales(ctx context.Context, cutoff time.Time) ([]*promo.FlashSale, error) {
	var ended []flashSaleModel
	err := s.pg.NewSelect(&ended).
		Where("status != $1", string(promo.StatusExpired)).
		Where("ends_at <= $2", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var result []*promo.FlashSale
	for i := range ended {
		res, err := s.pg.NewUpdate((*flashSaleModel)(nil)).
			Set("status = $1", string(promo.StatusExpired)).
			Set("updated_at = $2", now()).
			Where("id = $3", ended[i].ID).
			Where("status != $4", string(promo.StatusExpired)).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetDrip(ctx context.Context, dripID id.DripID) (*drip.Schedule, error) {
	m := new(dripModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", dripID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrDripNotFound
		}
		return nil, err
	}
	return fromDripModel(m)
}

func (s *Store) UpdateDrip(ctx context.Context, sched *drip.Schedule) error {
	m := toDripModel(sched)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrDripNotFound
	}
	return nil
}

func (s *Store) ListDrips(ctx context.Context, opts drip.ListOpts) ([]*drip.Schedule, error) {
	var models []dripModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Delivered != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("delivered = $%d", argIdx), *opts.Delivered)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("release_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	err := s.pg.NewSelect(&models).
		Where("delivered = $1", false).
		Where("release_at <= $2", t).
		OrderExpr("release_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate((*dripModel)(nil)).
		Set("delivered = $1", true).
		Set("delivered_at = $2", at).
		Set("updated_at = $3", now()).
		Where("id = $4", dripID.String()).
		Where("delivered = $5", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ==================== Loyalty Store ====================

// CreditPoints bumps the user's balance and appends the ledger entry
// carrying the post-credit balance. The balance update is a single
// atomic increment; the RETURNING clause hands back the new balance for
// the entry row.
func (s *Store) CreditPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, orderID id.OrderID, note string) (*loyalty.Entry, error) {
	var balance int64
	err := s.pg.NewRaw(`
		UPDATE vault_users SET points_balance = points_balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING points_balance
	`, delta, now(), userID.String()).Scan(ctx, &balance)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrUserNotFound
		}
		return nil, err
	}

	entry := &loyalty.Entry{
		Entity:  types.NewEntity(),
		ID:      id.NewLoyaltyEntryID(),
		UserID:  userID,
		Delta:   delta,
		Balance: balance,
		Reason:  reason,
		OrderID: orderID,
		Note:    note,
	}
	if _, err := s.pg.NewInsert(toLoyaltyEntryModel(entry)).Exec(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitPoints is CreditPoints in reverse with a balance guard: the
// UPDATE only matches when the balance covers the debit, so overdrafts
// lose the race at the database.
func (s *Store) DebitPoints(ctx context.Context, userID id.UserID, delta int64, reason loyalty.Reason, note string) (*loyalty.Entry, error) {
	var balance int64
	err := s.pg.NewRaw(`
		UPDATE vault_users SET points_balance = points_balance - $1, updated_at = $2
		WHERE id = $3 AND points_balance >= $4
		RETURNING points_balance
	`, delta, now(), userID.String(), delta).Scan(ctx, &balance)
	if err != nil {
		if isNoRows(err) {
			if _, gerr := s.GetUser(ctx, userID); gerr != nil {
				return nil, gerr
			}
			return nil, vaultstore.ErrInsufficientPoints
		}
		return nil, err
	}

	entry := &loyalty.Entry{
		Entity:  types.NewEntity(),
		ID:      id.NewLoyaltyEntryID(),
		UserID:  userID,
		Delta:   -delta,
		Balance: balance,
		Reason:  reason,
		Note:    note,
	}
	if _, err := s.pg.NewInsert(toLoyaltyEntryModel(entry)).Exec(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) PointsBalance(ctx context.Context, userID id.UserID) (int64, error) {
	var balance int64
	err := s.pg.NewRaw(`
		SELECT points_balance FROM vault_users WHERE id = $1
	`, userID.String()).Scan(ctx, &balance)
	if err != nil {
		if isNoRows(err) {
			return 0, vaultstore.ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (s *Store) ListLoyaltyEntries(ctx context.Context, userID id.UserID, opts loyalty.ListOpts) ([]*loyalty.Entry, error) {
	var models []loyaltyEntryModel
	q := s.pg.NewSelect(&models).Where("user_id = $1", userID.String())

	argIdx := 1
	if opts.Reason != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("reason = $%d", argIdx), string(opts.Reason))
	}
	if !opts.OrderID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("order_id = $%d", argIdx), opts.OrderID.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetRequest(ctx context.Context, requestID id.CustomRequestID) (*request.CustomRequest, error) {
	m := new(requestModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", requestID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrRequestNotFound
		}
		return nil, err
	}
	return fromRequestModel(m)
}

func (s *Store) UpdateRequest(ctx context.Context, r *request.CustomRequest) error {
	m := toRequestModel(r)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrRequestNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, opts request.ListOpts) ([]*request.CustomRequest, error) {
	var models []requestModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.UserID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPost(ctx context.Context, postID id.ScheduledPostID) (*post.ScheduledPost, error) {
	m := new(postModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", postID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vaultstore.ErrPostNotFound
		}
		return nil, err
	}
	return fromPostModel(m)
}

func (s *Store) UpdatePost(ctx context.Context, p *post.ScheduledPost) error {
	m := toPostModel(p)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrPostNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, opts post.ListOpts) ([]*post.ScheduledPost, error) {
	var models []postModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("post_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	err := s.pg.NewSelect(&models).
		Where("status = $1", string(post.StatusPending)).
		Where("post_at <= $2", t).
		OrderExpr("post_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

// CheckAndRecordEvent is the idempotency check-and-set: the insert
// hits the unique key index and ON CONFLICT DO NOTHING turns a replay
// into zero affected rows.
func (s *Store) CheckAndRecordEvent(ctx context.Context, key string, eventType string) (bool, error) {
	m := &processedEventModel{
		ID:        id.NewWebhookEventID().String(),
		Key:       key,
		Type:      eventType,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	res, err := s.pg.NewInsert(m).
		OnConflict("(key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) PurgeProcessedEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*processedEventModel)(nil)).
		Where("created_at < $1", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func (s *Store) EnqueuePendingEvent(ctx context.Context, p *webhook.PendingEvent) error {
	if p.ID.IsNil() {
		p.ID = id.NewWebhookEventID()
	}
	if p.CreatedAt.IsZero() {
		p.Entity = types.NewEntity()
	}
	m := toPendingEventModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]*webhook.PendingEvent, error) {
	var models []pendingEventModel
	q := s.pg.NewSelect(&models).
		OrderExpr("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePendingEvent(ctx context.Context, eventID id.WebhookEventID) error {
	res, err := s.pg.NewDelete((*pendingEventModel)(nil)).
		Where("id = $1", eventID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vaultstore.ErrNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
