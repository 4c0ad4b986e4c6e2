package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/deliver"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/store"
	"github.com/velora/vault/store/memory"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

type jobProvider struct{}

func (jobProvider) CreateCheckout(_ context.Context, req provider.CheckoutRequest) (*provider.Checkout, error) {
	return &provider.Checkout{ProviderRef: "PP-" + req.OrderID.String(), ApproveURL: "https://pay.example.com"}, nil
}

func (jobProvider) Capture(_ context.Context, ref string) (string, error) {
	return "CAP-" + ref, nil
}

type jobVerifier struct{}

func (jobVerifier) Verify(_ context.Context, _ []byte, _ map[string]string) (*webhook.Event, error) {
	return &webhook.Event{}, nil
}

// countingDeliverer records every outbound delivery.
type countingDeliverer struct {
	unlocks  []deliver.Unlock
	previews []deliver.Preview
	notices  []string
}

func (d *countingDeliverer) DeliverUnlock(_ context.Context, u deliver.Unlock) error {
	d.unlocks = append(d.unlocks, u)
	return nil
}

func (d *countingDeliverer) DeliverPreview(_ context.Context, p deliver.Preview) error {
	d.previews = append(d.previews, p)
	return nil
}

func (d *countingDeliverer) Notify(_ context.Context, chatID, message string) error {
	d.notices = append(d.notices, chatID+": "+message)
	return nil
}

type countingPublisher struct {
	posts []string
}

func (p *countingPublisher) PublishPost(_ context.Context, img *catalog.Image, _ string) error {
	p.posts = append(p.posts, img.ID.String())
	return nil
}

// saleWatcher records sale start announcements.
type saleWatcher struct {
	started int
	expired int
}

func (saleWatcher) Name() string { return "sale-watcher" }

func (w *saleWatcher) OnFlashSaleStarted(_ context.Context, _ interface{}) error {
	w.started++
	return nil
}

func (w *saleWatcher) OnFlashSaleExpired(_ context.Context, _ interface{}) error {
	w.expired++
	return nil
}

func newJobEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(memory.New(), jobProvider{}, jobVerifier{}, opts...)
}

func seedJobImage(t *testing.T, e *Engine) *catalog.Image {
	t.Helper()
	ctx := context.Background()
	cat := &catalog.Category{Name: "Studio", Active: true}
	if err := e.CreateCategory(ctx, cat); err != nil {
		t.Fatal(err)
	}
	img := &catalog.Image{
		CategoryID: cat.ID,
		Title:      "Noir",
		Price:      types.USD(799),
		Active:     true,
		StorageKey: "images/noir.jpg",
	}
	if err := e.CreateImage(ctx, img); err != nil {
		t.Fatal(err)
	}
	return img
}

func TestRunFlashSalesAnnouncesOnce(t *testing.T) {
	ctx := context.Background()
	w := &saleWatcher{}
	e := newJobEngine(t, WithPlugin(w))

	now := time.Now().UTC()
	if err := e.CreateFlashSale(ctx, &promo.FlashSale{
		Title:           "Midweek",
		DiscountPercent: 20,
		StartsAt:        now.Add(-time.Minute),
		EndsAt:          now.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.runFlashSales(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.runFlashSales(ctx); err != nil {
		t.Fatal(err)
	}
	if w.started != 1 {
		t.Errorf("sale announced %d times, want 1", w.started)
	}
}

func TestRunFlashSalesExpiresEndedWindows(t *testing.T) {
	ctx := context.Background()
	w := &saleWatcher{}
	e := newJobEngine(t, WithPlugin(w))

	now := time.Now().UTC()
	if err := e.CreateFlashSale(ctx, &promo.FlashSale{
		Title:           "Over",
		DiscountPercent: 20,
		StartsAt:        now.Add(-2 * time.Hour),
		EndsAt:          now.Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.runFlashSales(ctx); err != nil {
		t.Fatal(err)
	}
	if w.expired != 1 {
		t.Errorf("sale expired %d times, want 1", w.expired)
	}

	sales, err := e.ListFlashSales(ctx, promo.ListOpts{Status: promo.StatusExpired})
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 1 {
		t.Errorf("expired sales = %d, want 1", len(sales))
	}
}

func TestRunWebhookTickExpiresStaleOrders(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.OrderExpiry = -time.Second // everything unpaid is already stale
	e := newJobEngine(t, WithConfig(cfg))

	img := seedJobImage(t, e)
	u, err := e.RegisterUser(ctx, "chat-1", "ana", "Ana", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Checkout(ctx, u.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.runWebhookTick(ctx); err != nil {
		t.Fatal(err)
	}

	ord, err := e.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Status != order.StatusExpired {
		t.Errorf("order status = %s, want %s", ord.Status, order.StatusExpired)
	}
}

func TestRunWebhookTickResettlesStuckPaidOrders(t *testing.T) {
	ctx := context.Background()
	e := newJobEngine(t)
	img := seedJobImage(t, e)
	u, err := e.RegisterUser(ctx, "chat-1", "ana", "Ana", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Checkout(ctx, u.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Payment recorded but settlement crashed before fulfillment.
	if err := e.store.MarkOrderPaid(ctx, res.Order.ID, "CAP-1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := e.runWebhookTick(ctx); err != nil {
		t.Fatal(err)
	}

	ord, err := e.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Status != order.StatusFulfilled {
		t.Errorf("order status = %s, want %s", ord.Status, order.StatusFulfilled)
	}
	unlocks, err := e.Unlocks(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(unlocks) != 1 {
		t.Errorf("unlocks = %d, want 1", len(unlocks))
	}
}

// flakyStore fails the first subscription insert, then recovers.
type flakyStore struct {
	store.Store
	failures int
}

func (s *flakyStore) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset by peer")
	}
	return s.Store.CreateSubscription(ctx, sub)
}

func TestRunWebhookTickRecoversFailedSubscriptionGrant(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: memory.New(), failures: 1}
	e := New(st, jobProvider{}, jobVerifier{})

	u, err := e.RegisterUser(ctx, "chat-1", "ana", "Ana", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.CheckoutSubscription(ctx, u.ID, user.TierGold)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.store.MarkOrderPaid(ctx, res.Order.ID, "CAP-1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	// The grant fails transiently, so settlement must not fulfill the
	// order: paid is the retry state.
	ord, err := e.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.settle(ctx, ord); err == nil {
		t.Fatal("expected settle to fail on the subscription insert")
	}
	ord, err = e.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Status != order.StatusPaid {
		t.Fatalf("order status after failed grant = %s, want %s", ord.Status, order.StatusPaid)
	}
	if _, err := e.ActiveSubscription(ctx, u.ID); err == nil {
		t.Fatal("subscription should not be active yet")
	}

	// The recovery pass finds the stuck order and completes settlement.
	if err := e.runWebhookTick(ctx); err != nil {
		t.Fatal(err)
	}

	ord, err = e.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Status != order.StatusFulfilled {
		t.Errorf("order status after recovery = %s, want %s", ord.Status, order.StatusFulfilled)
	}
	sub, err := e.ActiveSubscription(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Tier != user.TierGold {
		t.Errorf("subscription tier = %s, want %s", sub.Tier, user.TierGold)
	}
	balance, err := e.PointsBalance(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 585 {
		t.Errorf("points balance = %d, want 585", balance)
	}

	// A second pass replays nothing.
	if err := e.runWebhookTick(ctx); err != nil {
		t.Fatal(err)
	}
	balance, err = e.PointsBalance(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 585 {
		t.Errorf("points balance after second tick = %d, want 585", balance)
	}
	subs, err := e.store.ListSubscriptions(ctx, subscription.ListOpts{UserID: u.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(subs))
	}
}

func TestRunDripRelease(t *testing.T) {
	ctx := context.Background()
	d := &countingDeliverer{}
	e := newJobEngine(t, WithDeliverer(d))
	img := seedJobImage(t, e)

	free, err := e.RegisterUser(ctx, "chat-free", "free", "Free", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	gold, err := e.RegisterUser(ctx, "chat-gold", "gold", "Gold", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	gold.Tier = user.TierGold
	if err := e.store.UpdateUser(ctx, gold); err != nil {
		t.Fatal(err)
	}

	// A free-audience drop sends locked previews to everyone.
	if err := e.ScheduleDrip(ctx, &drip.Schedule{
		ImageID:   img.ID,
		ReleaseAt: time.Now().UTC().Add(-time.Minute),
		Teaser:    "tonight only",
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.runDripRelease(ctx); err != nil {
		t.Fatal(err)
	}
	if len(d.previews) != 2 {
		t.Errorf("previews = %d, want 2", len(d.previews))
	}

	// The delivered mark absorbs overlapping ticks.
	if err := e.runDripRelease(ctx); err != nil {
		t.Fatal(err)
	}
	if len(d.previews) != 2 {
		t.Errorf("previews after second tick = %d, want 2", len(d.previews))
	}

	// A paying-audience drop unlocks the content for entitled tiers only.
	if err := e.ScheduleDrip(ctx, &drip.Schedule{
		ImageID:      img.ID,
		AudienceTier: user.TierGold,
		ReleaseAt:    time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.runDripRelease(ctx); err != nil {
		t.Fatal(err)
	}

	goldUnlocks, err := e.Unlocks(ctx, gold.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(goldUnlocks) != 1 {
		t.Errorf("gold unlocks = %d, want 1", len(goldUnlocks))
	}
	freeUnlocks, err := e.Unlocks(ctx, free.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(freeUnlocks) != 0 {
		t.Errorf("free-tier unlocks = %d, want 0", len(freeUnlocks))
	}
}

func TestRunSubscriptionsRecomputesTier(t *testing.T) {
	ctx := context.Background()
	d := &countingDeliverer{}
	e := newJobEngine(t, WithDeliverer(d))

	u, err := e.RegisterUser(ctx, "chat-1", "ana", "Ana", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	u.Tier = user.TierGold
	if err := e.store.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		Entity:      types.NewEntity(),
		ID:          id.NewSubscriptionID(),
		UserID:      u.ID,
		Tier:        user.TierGold,
		Status:      subscription.StatusActive,
		Price:       types.USD(3999),
		PeriodStart: now.Add(-31 * 24 * time.Hour),
		PeriodEnd:   now.Add(-time.Hour),
	}
	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}

	if err := e.runSubscriptions(ctx); err != nil {
		t.Fatal(err)
	}

	fresh, err := e.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Tier != user.TierNone {
		t.Errorf("tier after expiry = %s, want %s", fresh.Tier, user.TierNone)
	}
}

func TestRunPublicPosts(t *testing.T) {
	ctx := context.Background()
	pub := &countingPublisher{}
	e := newJobEngine(t, WithPublisher(pub))
	img := seedJobImage(t, e)

	// Scheduling checks the guard, so a private image is planted
	// directly in the store to exercise the publish-time assertion.
	blocked := &post.ScheduledPost{
		Entity:  types.NewEntity(),
		ID:      id.NewScheduledPostID(),
		ImageID: img.ID,
		Caption: "oops",
		Status:  post.StatusPending,
		PostAt:  time.Now().UTC().Add(-time.Minute),
	}
	if err := e.store.CreatePost(ctx, blocked); err != nil {
		t.Fatal(err)
	}

	if err := e.runPublicPosts(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := e.store.GetPost(ctx, blocked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != post.StatusFailed {
		t.Errorf("blocked post status = %s, want %s", got.Status, post.StatusFailed)
	}
	if len(pub.posts) != 0 {
		t.Errorf("published %d posts, want 0", len(pub.posts))
	}

	// Cleared content goes out.
	if err := e.ClassifyImage(ctx, img.ID, catalog.ContentInstagram); err != nil {
		t.Fatal(err)
	}
	if err := e.SchedulePost(ctx, &post.ScheduledPost{
		ImageID: img.ID,
		Caption: "new drop",
		PostAt:  time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.runPublicPosts(ctx); err != nil {
		t.Fatal(err)
	}
	if len(pub.posts) != 1 {
		t.Errorf("published %d posts, want 1", len(pub.posts))
	}
}
