// Package memory provides an in-memory Store for tests and demos.
//
// A single mutex guards all state, which makes the compare-and-set
// operations (order transitions, the idempotency log, the points
// ledger) trivially atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/request"
	"github.com/velora/vault/store"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

type Store struct {
	mu sync.RWMutex

	users      map[string]*user.User
	categories map[string]*catalog.Category
	images     map[string]*catalog.Image

	orders  map[string]*order.Order
	unlocks map[string]*unlock.Unlock // keyed userID|imageID

	subscriptions map[string]*subscription.Subscription
	flashSales    map[string]*promo.FlashSale
	drips         map[string]*drip.Schedule
	requests      map[string]*request.CustomRequest
	posts         map[string]*post.ScheduledPost

	loyaltyEntries map[string][]*loyalty.Entry // keyed by user ID
	balances       map[string]int64

	processedEvents map[string]*webhook.ProcessedEvent // keyed by event key
	pendingEvents   map[string]*webhook.PendingEvent
}

func New() *Store {
	return &Store{
		users:           make(map[string]*user.User),
		categories:      make(map[string]*catalog.Category),
		images:          make(map[string]*catalog.Image),
		orders:          make(map[string]*order.Order),
		unlocks:         make(map[string]*unlock.Unlock),
		subscriptions:   make(map[string]*subscription.Subscription),
		flashSales:      make(map[string]*promo.FlashSale),
		drips:           make(map[string]*drip.Schedule),
		requests:        make(map[string]*request.CustomRequest),
		posts:           make(map[string]*post.ScheduledPost),
		loyaltyEntries:  make(map[string][]*loyalty.Entry),
		balances:        make(map[string]int64),
		processedEvents: make(map[string]*webhook.ProcessedEvent),
		pendingEvents:   make(map[string]*webhook.PendingEvent),
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func unlockKey(userID id.UserID, imageID id.ImageID) string {
	return userID.String() + "|" + imageID.String()
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.ChatID == u.ChatID {
			return store.ErrAlreadyExists
		}
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID.String()]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *Store) GetUserByChatID(_ context.Context, chatID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ChatID == chatID {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *Store) GetUserByReferralCode(_ context.Context, code string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ReferralCode != "" && u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; !exists {
		return store.ErrUserNotFound
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) ListUsers(_ context.Context, opts user.ListOpts) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*user.User, 0)
	for _, u := range s.users {
		if opts.Tier != "" && u.Tier != opts.Tier {
			continue
		}
		if opts.Banned != nil && u.Banned != *opts.Banned {
			continue
		}
		result = append(result, u)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

// Catalog Store implementation
func (s *Store) CreateImage(_ context.Context, img *catalog.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[img.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.images[img.ID.String()] = img
	return nil
}

func (s *Store) GetImage(_ context.Context, imageID id.ImageID) (*catalog.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if img, ok := s.images[imageID.String()]; ok {
		return img, nil
	}
	return nil, store.ErrImageNotFound
}

func (s *Store) UpdateImage(_ context.Context, img *catalog.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[img.ID.String()]; !exists {
		return store.ErrImageNotFound
	}
	s.images[img.ID.String()] = img
	return nil
}

func (s *Store) ListImages(_ context.Context, opts catalog.ListOpts) ([]*catalog.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.Image, 0)
	for _, img := range s.images {
		if !opts.CategoryID.IsNil() && img.CategoryID != opts.CategoryID {
			continue
		}
		if opts.ContentType != "" && img.ContentType != opts.ContentType {
			continue
		}
		if opts.ActiveOnly && !img.Active {
			continue
		}
		result = append(result, img)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CreateCategory(_ context.Context, c *catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[c.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.categories[c.ID.String()] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, categoryID id.CategoryID) (*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.categories[categoryID.String()]; ok {
		return c, nil
	}
	return nil, store.ErrCategoryNotFound
}

func (s *Store) ListCategories(_ context.Context, activeOnly bool) ([]*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.Category, 0)
	for _, c := range s.categories {
		if activeOnly && !c.Active {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Order Store implementation
func (s *Store) CreateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.orders[o.ID.String()] = o
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID id.OrderID) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.orders[orderID.String()]; ok {
		return o, nil
	}
	return nil, store.ErrOrderNotFound
}

func (s *Store) GetOrderByProviderRef(_ context.Context, ref string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ref == "" {
		return nil, store.ErrOrderNotFound
	}
	for _, o := range s.orders {
		if o.ProviderRef == ref {
			return o, nil
		}
	}
	return nil, store.ErrOrderNotFound
}

func (s *Store) UpdateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID.String()]; !exists {
		return store.ErrOrderNotFound
	}
	s.orders[o.ID.String()] = o
	return nil
}

func (s *Store) ListOrders(_ context.Context, opts order.ListOpts) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0)
	for _, o := range s.orders {
		if !opts.UserID.IsNil() && o.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		if opts.Kind != "" && o.Kind != opts.Kind {
			continue
		}
		result = append(result, o)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) MarkOrderPaid(_ context.Context, orderID id.OrderID, captureRef string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID.String()]
	if !ok {
		return store.ErrOrderNotFound
	}
	if o.Status != order.StatusAwaitingPayment {
		return order.ErrInvalidTransition
	}

	o.Status = order.StatusPaid
	o.PaidAt = &paidAt
	o.CaptureRef = captureRef
	o.Touch()
	return nil
}

func (s *Store) FulfillOrder(_ context.Context, orderID id.OrderID, fulfilledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID.String()]
	if !ok {
		return store.ErrOrderNotFound
	}
	if o.Status != order.StatusPaid {
		return order.ErrInvalidTransition
	}

	o.Status = order.StatusFulfilled
	o.FulfilledAt = &fulfilledAt
	o.Touch()
	return nil
}

func (s *Store) ExpireStaleOrders(_ context.Context, cutoff time.Time) ([]id.OrderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]id.OrderID, 0)
	for _, o := range s.orders {
		if o.Status != order.StatusCreated && o.Status != order.StatusAwaitingPayment {
			continue
		}
		if o.CreatedAt.After(cutoff) {
			continue
		}
		o.Status = order.StatusExpired
		o.Touch()
		expired = append(expired, o.ID)
	}
	return expired, nil
}

// Unlock Store implementation
func (s *Store) GrantUnlock(_ context.Context, u *unlock.Unlock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unlockKey(u.UserID, u.ImageID)
	if _, exists := s.unlocks[key]; exists {
		return false, nil
	}
	s.unlocks[key] = u
	return true, nil
}

func (s *Store) HasUnlock(_ context.Context, userID id.UserID, imageID id.ImageID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.unlocks[unlockKey(userID, imageID)]
	return ok, nil
}

func (s *Store) ListUnlocks(_ context.Context, userID id.UserID) ([]*unlock.Unlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*unlock.Unlock, 0)
	for _, u := range s.unlocks {
		if u.UserID == userID {
			result = append(result, u)
		}
	}
	return result, nil
}

func (s *Store) CountUnlocks(_ context.Context, imageID id.ImageID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, u := range s.unlocks {
		if u.ImageID == imageID {
			n++
		}
	}
	return n, nil
}

// Subscription Store implementation
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return sub, nil
	}
	return nil, store.ErrSubscriptionNotFound
}

func (s *Store) GetActiveSubscription(_ context.Context, userID id.UserID, at time.Time) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID != userID || !sub.ActiveAt(at) {
			continue
		}
		if best == nil || sub.Tier.Rank() > best.Tier.Rank() {
			best = sub
		}
	}
	if best == nil {
		return nil, store.ErrSubscriptionNotFound
	}
	return best, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return store.ErrSubscriptionNotFound
	}
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if !opts.UserID.IsNil() && sub.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		result = append(result, sub)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ExpireEndedSubscriptions(_ context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.Status != subscription.StatusActive || sub.PeriodEnd.After(cutoff) {
			continue
		}
		sub.Status = subscription.StatusExpired
		sub.Touch()
		ended = append(ended, sub)
	}
	return ended, nil
}

func (s *Store) ListExpiringSubscriptions(_ context.Context, at time.Time, within time.Duration) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.ExpiresSoon(at, within) {
			result = append(result, sub)
		}
	}
	return result, nil
}

// Flash Sale Store implementation
func (s *Store) CreateFlashSale(_ context.Context, fs *promo.FlashSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.flashSales[fs.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.flashSales[fs.ID.String()] = fs
	return nil
}

func (s *Store) GetFlashSale(_ context.Context, saleID id.FlashSaleID) (*promo.FlashSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if fs, ok := s.flashSales[saleID.String()]; ok {
		return fs, nil
	}
	return nil, store.ErrFlashSaleNotFound
}

func (s *Store) UpdateFlashSale(_ context.Context, fs *promo.FlashSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.flashSales[fs.ID.String()]; !exists {
		return store.ErrFlashSaleNotFound
	}
	s.flashSales[fs.ID.String()] = fs
	return nil
}

func (s *Store) ListFlashSales(_ context.Context, opts promo.ListOpts) ([]*promo.FlashSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*promo.FlashSale, 0)
	for _, fs := range s.flashSales {
		if opts.Status != "" && fs.Status != opts.Status {
			continue
		}
		result = append(result, fs)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListRunningFlashSales(_ context.Context, t time.Time) ([]*promo.FlashSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*promo.FlashSale, 0)
	for _, fs := range s.flashSales {
		if fs.RunningAt(t) {
			result = append(result, fs)
		}
	}
	return result, nil
}

func (s *Store) MarkFlashSaleAnnounced(_ context.Context, saleID id.FlashSaleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.flashSales[saleID.String()]
	if !ok {
		return false, store.ErrFlashSaleNotFound
	}
	if fs.Announced {
		return false, nil
	}
	fs.Announced = true
	fs.Status = promo.StatusActive
	fs.Touch()
	return true, nil
}

func (s *Store) ExpireEndedFlashSales(_ context.Context, cutoff time.Time) ([]*promo.FlashSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := make([]*promo.FlashSale, 0)
	for _, fs := range s.flashSales {
		if fs.Status == promo.StatusExpired || fs.EndsAt.After(cutoff) {
			continue
		}
		fs.Status = promo.StatusExpired
		fs.Touch()
		ended = append(ended, fs)
	}
	return ended, nil
}

// Drip Store implementation
func (s *Store) CreateDrip(_ context.Context, sched *drip.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drips[sched.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.drips[sched.ID.String()] = sched
	return nil
}

func (s *Store) GetDrip(_ context.Context, dripID id.DripID) (*drip.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.drips[dripID.String()]; ok {
		return d, nil
	}
	return nil, store.ErrDripNotFound
}

func (s *Store) UpdateDrip(_ context.Context, sched *drip.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drips[sched.ID.String()]; !exists {
		return store.ErrDripNotFound
	}
	s.drips[sched.ID.String()] = sched
	return nil
}

func (s *Store) ListDrips(_ context.Context, opts drip.ListOpts) ([]*drip.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*drip.Schedule, 0)
	for _, d := range s.drips {
		if opts.Delivered != nil && d.Delivered != *opts.Delivered {
			continue
		}
		result = append(result, d)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListDueDrips(_ context.Context, t time.Time) ([]*drip.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*drip.Schedule, 0)
	for _, d := range s.drips {
		if d.Due(t) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *Store) MarkDripDelivered(_ context.Context, dripID id.DripID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drips[dripID.String()]
	if !ok {
		return false, store.ErrDripNotFound
	}
	if d.Delivered {
		return false, nil
	}
	d.Delivered = true
	d.DeliveredAt = &at
	d.Touch()
	return true, nil
}

// Loyalty Store implementation
func (s *Store) CreditPoints(_ context.Context, userID id.UserID, delta int64, reason loyalty.Reason, orderID id.OrderID, note string) (*loyalty.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[userID.String()] + delta
	s.balances[userID.String()] = balance

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
	s.loyaltyEntries[userID.String()] = append(s.loyaltyEntries[userID.String()], entry)
	if u, ok := s.users[userID.String()]; ok {
		u.PointsBalance = balance
	}
	return entry, nil
}

func (s *Store) DebitPoints(_ context.Context, userID id.UserID, delta int64, reason loyalty.Reason, note string) (*loyalty.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[userID.String()]
	if balance < delta {
		return nil, store.ErrInsufficientPoints
	}
	balance -= delta
	s.balances[userID.String()] = balance

	entry := &loyalty.Entry{
		Entity:  types.NewEntity(),
		ID:      id.NewLoyaltyEntryID(),
		UserID:  userID,
		Delta:   -delta,
		Balance: balance,
		Reason:  reason,
		Note:    note,
	}
	s.loyaltyEntries[userID.String()] = append(s.loyaltyEntries[userID.String()], entry)
	if u, ok := s.users[userID.String()]; ok {
		u.PointsBalance = balance
	}
	return entry, nil
}

func (s *Store) PointsBalance(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[userID.String()], nil
}

func (s *Store) ListLoyaltyEntries(_ context.Context, userID id.UserID, opts loyalty.ListOpts) ([]*loyalty.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*loyalty.Entry, 0)
	for _, e := range s.loyaltyEntries[userID.String()] {
		if opts.Reason != "" && e.Reason != opts.Reason {
			continue
		}
		if !opts.OrderID.IsNil() && e.OrderID != opts.OrderID {
			continue
		}
		result = append(result, e)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

// Custom Request Store implementation
func (s *Store) CreateRequest(_ context.Context, r *request.CustomRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.requests[r.ID.String()] = r
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID id.CustomRequestID) (*request.CustomRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.requests[requestID.String()]; ok {
		return r, nil
	}
	return nil, store.ErrRequestNotFound
}

func (s *Store) UpdateRequest(_ context.Context, r *request.CustomRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID.String()]; !exists {
		return store.ErrRequestNotFound
	}
	s.requests[r.ID.String()] = r
	return nil
}

func (s *Store) ListRequests(_ context.Context, opts request.ListOpts) ([]*request.CustomRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*request.CustomRequest, 0)
	for _, r := range s.requests {
		if !opts.UserID.IsNil() && r.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		result = append(result, r)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

// Scheduled Post Store implementation
func (s *Store) CreatePost(_ context.Context, p *post.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[p.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.posts[p.ID.String()] = p
	return nil
}

func (s *Store) GetPost(_ context.Context, postID id.ScheduledPostID) (*post.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.posts[postID.String()]; ok {
		return p, nil
	}
	return nil, store.ErrPostNotFound
}

func (s *Store) UpdatePost(_ context.Context, p *post.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[p.ID.String()]; !exists {
		return store.ErrPostNotFound
	}
	s.posts[p.ID.String()] = p
	return nil
}

func (s *Store) ListPosts(_ context.Context, opts post.ListOpts) ([]*post.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*post.ScheduledPost, 0)
	for _, p := range s.posts {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		result = append(result, p)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListDuePosts(_ context.Context, t time.Time) ([]*post.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*post.ScheduledPost, 0)
	for _, p := range s.posts {
		if p.Due(t) {
			result = append(result, p)
		}
	}
	return result, nil
}

// Webhook Store implementation
func (s *Store) CheckAndRecordEvent(_ context.Context, key string, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processedEvents[key]; exists {
		return false, nil
	}
	s.processedEvents[key] = &webhook.ProcessedEvent{
		Entity: types.NewEntity(),
		ID:     id.NewWebhookEventID(),
		Key:    key,
		Type:   eventType,
	}
	return true, nil
}

func (s *Store) PurgeProcessedEvents(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, evt := range s.processedEvents {
		if evt.CreatedAt.Before(cutoff) {
			delete(s.processedEvents, key)
			n++
		}
	}
	return n, nil
}

func (s *Store) EnqueuePendingEvent(_ context.Context, p *webhook.PendingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID.IsNil() {
		p.ID = id.NewWebhookEventID()
	}
	if p.CreatedAt.IsZero() {
		p.Entity = types.NewEntity()
	}
	s.pendingEvents[p.ID.String()] = p
	return nil
}

func (s *Store) ListPendingEvents(_ context.Context, limit int) ([]*webhook.PendingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*webhook.PendingEvent, 0, len(s.pendingEvents))
	for _, p := range s.pendingEvents {
		result = append(result, p)
	}
	return paginate(result, limit, 0), nil
}

func (s *Store) UpdatePendingEvent(_ context.Context, p *webhook.PendingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendingEvents[p.ID.String()]; !exists {
		return store.ErrNotFound
	}
	s.pendingEvents[p.ID.String()] = p
	return nil
}

func (s *Store) DeletePendingEvent(_ context.Context, eventID id.WebhookEventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pendingEvents, eventID.String())
	return nil
}

// Core Store implementation
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
