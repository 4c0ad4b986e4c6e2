package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/request"
	"github.com/velora/vault/safety"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// Catalog Management
// ──────────────────────────────────────────────────

// CreateCategory adds a browsing category.
func (e *Engine) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if c.Name == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	if c.ID.IsNil() {
		c.ID = id.NewCategoryID()
	}
	c.Entity = types.NewEntity()
	return e.store.CreateCategory(ctx, c)
}

// CreateImage adds an image to the catalog. Content type defaults to
// private; pricing below the configured minimum is rejected.
func (e *Engine) CreateImage(ctx context.Context, img *catalog.Image) error {
	if img.Title == "" {
		return ValidationError{Field: "title", Message: "required"}
	}
	if img.StorageKey == "" {
		return ValidationError{Field: "storage_key", Message: "required"}
	}
	if img.CategoryID.IsNil() {
		return ValidationError{Field: "category_id", Message: "required"}
	}
	if _, err := e.store.GetCategory(ctx, img.CategoryID); err != nil {
		return err
	}
	if img.Price.LessThan(e.cfg.MinimumPrice) {
		return ValidationError{Field: "price", Message: fmt.Sprintf("below minimum %s", e.cfg.MinimumPrice)}
	}
	if img.ContentType == "" {
		img.ContentType = catalog.ContentPrivate
	}
	if !img.ContentType.Valid() {
		return ValidationError{Field: "content_type", Message: fmt.Sprintf("unknown %q", img.ContentType)}
	}
	if img.TierRequired == "" {
		img.TierRequired = user.TierNone
	}

	if img.ID.IsNil() {
		img.ID = id.NewImageID()
	}
	img.Entity = types.NewEntity()
	return e.store.CreateImage(ctx, img)
}

// GetImage retrieves an image by ID.
func (e *Engine) GetImage(ctx context.Context, imageID id.ImageID) (*catalog.Image, error) {
	return e.store.GetImage(ctx, imageID)
}

// ListImages lists catalog images with the given filters.
func (e *Engine) ListImages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Image, error) {
	return e.store.ListImages(ctx, opts)
}

// ListCategories lists browsing categories.
func (e *Engine) ListCategories(ctx context.Context, activeOnly bool) ([]*catalog.Category, error) {
	return e.store.ListCategories(ctx, activeOnly)
}

// ClassifyImage sets an image's content type. Clearing content for
// public posting is deliberately a dedicated admin action rather than
// a field on create or update.
func (e *Engine) ClassifyImage(ctx context.Context, imageID id.ImageID, ct catalog.ContentType) error {
	if !ct.Valid() {
		return ValidationError{Field: "content_type", Message: fmt.Sprintf("unknown %q", ct)}
	}

	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if img.ContentType == ct {
		return nil
	}

	img.ContentType = ct
	img.Touch()
	if err := e.store.UpdateImage(ctx, img); err != nil {
		return err
	}

	e.logger.Info("image classified", "image_id", imageID, "content_type", ct)
	return nil
}

// SetImageActive toggles whether an image is for sale.
func (e *Engine) SetImageActive(ctx context.Context, imageID id.ImageID, active bool) error {
	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if img.Active == active {
		return nil
	}
	img.Active = active
	img.Touch()
	return e.store.UpdateImage(ctx, img)
}

// ──────────────────────────────────────────────────
// Flash Sales
// ──────────────────────────────────────────────────

// CreateFlashSale schedules a discount window. A nil category scopes
// the sale to the whole catalog.
func (e *Engine) CreateFlashSale(ctx context.Context, fs *promo.FlashSale) error {
	if fs.DiscountPercent <= 0 || fs.DiscountPercent >= 100 {
		return ValidationError{Field: "discount_percent", Message: "must be between 1 and 99"}
	}
	if !fs.EndsAt.After(fs.StartsAt) {
		return ValidationError{Field: "ends_at", Message: "must be after starts_at"}
	}
	if !fs.CategoryID.IsNil() {
		if _, err := e.store.GetCategory(ctx, fs.CategoryID); err != nil {
			return err
		}
	}

	if fs.ID.IsNil() {
		fs.ID = id.NewFlashSaleID()
	}
	fs.Status = promo.StatusScheduled
	if fs.RunningAt(time.Now().UTC()) {
		fs.Status = promo.StatusActive
	}
	fs.Entity = types.NewEntity()

	if err := e.store.CreateFlashSale(ctx, fs); err != nil {
		return err
	}

	e.logger.Info("flash sale created",
		"sale_id", fs.ID, "title", fs.Title, "discount", fs.DiscountPercent,
		"category_id", fs.CategoryID, "starts_at", fs.StartsAt, "ends_at", fs.EndsAt)
	return nil
}

// ListFlashSales lists sales with the given filters.
func (e *Engine) ListFlashSales(ctx context.Context, opts promo.ListOpts) ([]*promo.FlashSale, error) {
	return e.store.ListFlashSales(ctx, opts)
}

// ──────────────────────────────────────────────────
// Drip Scheduling
// ──────────────────────────────────────────────────

// ScheduleDrip queues an image for release to a tiered audience.
func (e *Engine) ScheduleDrip(ctx context.Context, s *drip.Schedule) error {
	if s.ReleaseAt.IsZero() {
		return ValidationError{Field: "release_at", Message: "required"}
	}
	if s.AudienceTier != "" && !s.AudienceTier.Valid() {
		return ValidationError{Field: "audience_tier", Message: fmt.Sprintf("unknown %q", s.AudienceTier)}
	}
	if s.AudienceTier == "" {
		s.AudienceTier = user.TierNone
	}
	if _, err := e.store.GetImage(ctx, s.ImageID); err != nil {
		return err
	}

	if s.ID.IsNil() {
		s.ID = id.NewDripID()
	}
	s.Entity = types.NewEntity()
	return e.store.CreateDrip(ctx, s)
}

// ──────────────────────────────────────────────────
// Custom Requests
// ──────────────────────────────────────────────────

// SubmitRequest files a buyer's custom content request.
func (e *Engine) SubmitRequest(ctx context.Context, userID id.UserID, description string) (*request.CustomRequest, error) {
	if _, err := e.requireActiveUser(ctx, userID); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, ValidationError{Field: "description", Message: "required"}
	}

	req := &request.CustomRequest{
		Entity:      types.NewEntity(),
		ID:          id.NewCustomRequestID(),
		UserID:      userID,
		Description: description,
		Status:      request.StatusSubmitted,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	e.logger.Info("custom request submitted", "request_id", req.ID, "user_id", userID)
	return req, nil
}

// PriceRequest is the admin putting a price on a submitted request.
func (e *Engine) PriceRequest(ctx context.Context, requestID id.CustomRequestID, price types.Money, note string) error {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(request.StatusPriced) {
		return fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}
	if price.LessThan(e.cfg.MinimumPrice) {
		return ValidationError{Field: "price", Message: fmt.Sprintf("below minimum %s", e.cfg.MinimumPrice)}
	}

	req.Status = request.StatusPriced
	req.Price = price
	req.AdminNote = note
	req.Touch()
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		return err
	}

	if u, err := e.store.GetUser(ctx, req.UserID); err == nil {
		e.notify(ctx, u, fmt.Sprintf("Your custom request was priced at %s.", price))
	}
	return nil
}

// RejectRequest closes a request without delivery.
func (e *Engine) RejectRequest(ctx context.Context, requestID id.CustomRequestID, note string) error {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(request.StatusRejected) {
		return fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	req.Status = request.StatusRejected
	req.AdminNote = note
	req.Touch()
	return e.store.UpdateRequest(ctx, req)
}

// ListRequests lists custom requests with the given filters.
func (e *Engine) ListRequests(ctx context.Context, opts request.ListOpts) ([]*request.CustomRequest, error) {
	return e.store.ListRequests(ctx, opts)
}

// ──────────────────────────────────────────────────
// Public Posting
// ──────────────────────────────────────────────────

// SchedulePost queues an image for public posting. The safety guard
// runs here as an early check and again at publish time; only content
// explicitly cleared for public posting is accepted.
func (e *Engine) SchedulePost(ctx context.Context, p *post.ScheduledPost) error {
	if p.PostAt.IsZero() {
		return ValidationError{Field: "post_at", Message: "required"}
	}

	img, err := e.store.GetImage(ctx, p.ImageID)
	if err != nil {
		return err
	}
	if err := safety.AssertPublicSafe(img); err != nil {
		e.plugins.EmitSafetyViolation(ctx, img.ID.String(), "schedule_post")
		return err
	}

	if p.ID.IsNil() {
		p.ID = id.NewScheduledPostID()
	}
	p.Status = post.StatusPending
	p.Entity = types.NewEntity()
	return e.store.CreatePost(ctx, p)
}

// ListPosts lists scheduled posts with the given filters.
func (e *Engine) ListPosts(ctx context.Context, opts post.ListOpts) ([]*post.ScheduledPost, error) {
	return e.store.ListPosts(ctx, opts)
}
