package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/request"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

// ==================== User models ====================

type userModel struct {
	grove.BaseModel `grove:"table:vault_users"`

	ID                     string            `grove:"id,pk"`
	ChatID                 string            `grove:"chat_id"`
	Username               string            `grove:"username"`
	DisplayName            string            `grove:"display_name"`
	Tier                   string            `grove:"tier"`
	PointsBalance          int64             `grove:"points_balance"`
	SpendAmount            int64             `grove:"spend_amount"`
	SpendCurrency          string            `grove:"spend_currency"`
	FreeUnlocks            int               `grove:"free_unlocks"`
	PendingDiscountPercent int               `grove:"pending_discount_percent"`
	ReferralCode           string            `grove:"referral_code"`
	ReferralCount          int64             `grove:"referral_count"`
	ReferredBy             string            `grove:"referred_by"`
	ReferralPaid           bool              `grove:"referral_paid"`
	Banned                 bool              `grove:"banned"`
	LastActiveAt           *time.Time        `grove:"last_active_at"`
	Metadata               map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt              time.Time         `grove:"created_at"`
	UpdatedAt              time.Time         `grove:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	m := &userModel{
		ID:                     u.ID.String(),
		ChatID:                 u.ChatID,
		Username:               u.Username,
		DisplayName:            u.DisplayName,
		Tier:                   string(u.Tier),
		PointsBalance:          u.PointsBalance,
		SpendAmount:            u.LifetimeSpend.Amount,
		SpendCurrency:          u.LifetimeSpend.Currency,
		FreeUnlocks:            u.FreeUnlocks,
		PendingDiscountPercent: u.PendingDiscountPercent,
		ReferralCode:           u.ReferralCode,
		ReferralCount:          u.ReferralCount,
		ReferralPaid:           u.ReferralPaid,
		Banned:                 u.Banned,
		LastActiveAt:           u.LastActiveAt,
		Metadata:               u.Metadata,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
	if !u.ReferredBy.IsNil() {
		m.ReferredBy = u.ReferredBy.String()
	}
	return m
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Entity:                 types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                     userID,
		ChatID:                 m.ChatID,
		Username:               m.Username,
		DisplayName:            m.DisplayName,
		Tier:                   user.Tier(m.Tier),
		PointsBalance:          m.PointsBalance,
		LifetimeSpend:          types.Money{Amount: m.SpendAmount, Currency: m.SpendCurrency},
		FreeUnlocks:            m.FreeUnlocks,
		PendingDiscountPercent: m.PendingDiscountPercent,
		ReferralCode:           m.ReferralCode,
		ReferralCount:          m.ReferralCount,
		ReferralPaid:           m.ReferralPaid,
		Banned:                 m.Banned,
		LastActiveAt:           m.LastActiveAt,
		Metadata:               m.Metadata,
	}
	if m.ReferredBy != "" {
		ref, err := id.ParseUserID(m.ReferredBy)
		if err != nil {
			return nil, err
		}
		u.ReferredBy = ref
	}
	return u, nil
}

// ==================== Catalog models ====================

type categoryModel struct {
	grove.BaseModel `grove:"table:vault_categories"`

	ID          string    `grove:"id,pk"`
	Name        string    `grove:"name"`
	Slug        string    `grove:"slug"`
	Description string    `grove:"description"`
	SortOrder   int       `grove:"sort_order"`
	Active      bool      `grove:"active"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toCategoryModel(c *catalog.Category) *categoryModel {
	return &categoryModel{
		ID:          c.ID.String(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCategoryModel(m *categoryModel) (*catalog.Category, error) {
	categoryID, err := id.ParseCategoryID(m.ID)
	if err != nil {
		return nil, err
	}
	return &catalog.Category{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          categoryID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		SortOrder:   m.SortOrder,
		Active:      m.Active,
	}, nil
}

type imageModel struct {
	grove.BaseModel `grove:"table:vault_images"`

	ID            string            `grove:"id,pk"`
	CategoryID    string            `grove:"category_id"`
	Title         string            `grove:"title"`
	Description   string            `grove:"description"`
	PriceAmount   int64             `grove:"price_amount"`
	PriceCurrency string            `grove:"price_currency"`
	ContentType   string            `grove:"content_type"`
	TierRequired  string            `grove:"tier_required"`
	Explicit      bool              `grove:"explicit"`
	Active        bool              `grove:"active"`
	StorageKey    string            `grove:"storage_key"`
	MimeType      string            `grove:"mime_type"`
	TotalSales    int64             `grove:"total_sales"`
	Metadata      map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

func toImageModel(img *catalog.Image) *imageModel {
	return &imageModel{
		ID:            img.ID.String(),
		CategoryID:    img.CategoryID.String(),
		Title:         img.Title,
		Description:   img.Description,
		PriceAmount:   img.Price.Amount,
		PriceCurrency: img.Price.Currency,
		ContentType:   string(img.ContentType),
		TierRequired:  string(img.TierRequired),
		Explicit:      img.Explicit,
		Active:        img.Active,
		StorageKey:    img.StorageKey,
		MimeType:      img.MimeType,
		TotalSales:    img.TotalSales,
		Metadata:      img.Metadata,
		CreatedAt:     img.CreatedAt,
		UpdatedAt:     img.UpdatedAt,
	}
}

func fromImageModel(m *imageModel) (*catalog.Image, error) {
	imageID, err := id.ParseImageID(m.ID)
	if err != nil {
		return nil, err
	}
	categoryID, err := id.ParseCategoryID(m.CategoryID)
	if err != nil {
		return nil, err
	}
	return &catalog.Image{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           imageID,
		CategoryID:   categoryID,
		Title:        m.Title,
		Description:  m.Description,
		Price:        types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		ContentType:  catalog.ContentType(m.ContentType),
		TierRequired: user.Tier(m.TierRequired),
		Explicit:     m.Explicit,
		Active:       m.Active,
		StorageKey:   m.StorageKey,
		MimeType:     m.MimeType,
		TotalSales:   m.TotalSales,
		Metadata:     m.Metadata,
	}, nil
}

// ==================== Order models ====================

type orderModel struct {
	grove.BaseModel `grove:"table:vault_orders"`

	ID             string            `grove:"id,pk"`
	UserID         string            `grove:"user_id"`
	Kind           string            `grove:"kind"`
	ImageID        string            `grove:"image_id"`
	SubscriptionID string            `grove:"subscription_id"`
	RequestID      string            `grove:"request_id"`
	Status         string            `grove:"status"`
	PriceAmount    int64             `grove:"price_amount"`
	PriceCurrency  string            `grove:"price_currency"`
	FlashSaleID    string            `grove:"flash_sale_id"`
	ProviderRef    string            `grove:"provider_ref"`
	CaptureRef     string            `grove:"capture_ref"`
	IdempotencyKey string            `grove:"idempotency_key"`
	PaidAt         *time.Time        `grove:"paid_at"`
	FulfilledAt    *time.Time        `grove:"fulfilled_at"`
	FailReason     string            `grove:"fail_reason"`
	Metadata       map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt      time.Time         `grove:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"`
}

func toOrderModel(o *order.Order) *orderModel {
	m := &orderModel{
		ID:             o.ID.String(),
		UserID:         o.UserID.String(),
		Kind:           string(o.Kind),
		Status:         string(o.Status),
		PriceAmount:    o.Price.Amount,
		PriceCurrency:  o.Price.Currency,
		ProviderRef:    o.ProviderRef,
		CaptureRef:     o.CaptureRef,
		IdempotencyKey: o.IdempotencyKey,
		PaidAt:         o.PaidAt,
		FulfilledAt:    o.FulfilledAt,
		FailReason:     o.FailReason,
		Metadata:       o.Metadata,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if !o.ImageID.IsNil() {
		m.ImageID = o.ImageID.String()
	}
	if !o.SubscriptionID.IsNil() {
		m.SubscriptionID = o.SubscriptionID.String()
	}
	if !o.RequestID.IsNil() {
		m.RequestID = o.RequestID.String()
	}
	if !o.FlashSaleID.IsNil() {
		m.FlashSaleID = o.FlashSaleID.String()
	}
	return m
}

func fromOrderModel(m *orderModel) (*order.Order, error) {
	orderID, err := id.ParseOrderID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             orderID,
		UserID:         userID,
		Kind:           order.ItemKind(m.Kind),
		Status:         order.Status(m.Status),
		Price:          types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		ProviderRef:    m.ProviderRef,
		CaptureRef:     m.CaptureRef,
		IdempotencyKey: m.IdempotencyKey,
		PaidAt:         m.PaidAt,
		FulfilledAt:    m.FulfilledAt,
		FailReason:     m.FailReason,
		Metadata:       m.Metadata,
	}
	if m.ImageID != "" {
		if o.ImageID, err = id.ParseImageID(m.ImageID); err != nil {
			return nil, err
		}
	}
	if m.SubscriptionID != "" {
		if o.SubscriptionID, err = id.ParseSubscriptionID(m.SubscriptionID); err != nil {
			return nil, err
		}
	}
	if m.RequestID != "" {
		if o.RequestID, err = id.ParseCustomRequestID(m.RequestID); err != nil {
			return nil, err
		}
	}
	if m.FlashSaleID != "" {
		if o.FlashSaleID, err = id.ParseFlashSaleID(m.FlashSaleID); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ==================== Unlock models ====================

type unlockModel struct {
	grove.BaseModel `grove:"table:vault_unlocks"`

	UserID    string    `grove:"user_id,pk"`
	ImageID   string    `grove:"image_id,pk"`
	OrderID   string    `grove:"order_id"`
	Source    string    `grove:"source"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toUnlockModel(u *unlock.Unlock) *unlockModel {
	m := &unlockModel{
		UserID:    u.UserID.String(),
		ImageID:   u.ImageID.String(),
		Source:    string(u.Source),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if !u.OrderID.IsNil() {
		m.OrderID = u.OrderID.String()
	}
	return m
}

func fromUnlockModel(m *unlockModel) (*unlock.Unlock, error) {
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	imageID, err := id.ParseImageID(m.ImageID)
	if err != nil {
		return nil, err
	}

	u := &unlock.Unlock{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		UserID:  userID,
		ImageID: imageID,
		Source:  unlock.Source(m.Source),
	}
	if m.OrderID != "" {
		if u.OrderID, err = id.ParseOrderID(m.OrderID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:vault_subscriptions"`

	ID            string            `grove:"id,pk"`
	UserID        string            `grove:"user_id"`
	Tier          string            `grove:"tier"`
	Status        string            `grove:"status"`
	PriceAmount   int64             `grove:"price_amount"`
	PriceCurrency string            `grove:"price_currency"`
	PeriodStart   time.Time         `grove:"period_start"`
	PeriodEnd     time.Time         `grove:"period_end"`
	AutoRenew     bool              `grove:"auto_renew"`
	OrderID       string            `grove:"order_id"`
	ProviderRef   string            `grove:"provider_ref"`
	CanceledAt    *time.Time        `grove:"canceled_at"`
	Metadata      map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	m := &subscriptionModel{
		ID:            s.ID.String(),
		UserID:        s.UserID.String(),
		Tier:          string(s.Tier),
		Status:        string(s.Status),
		PriceAmount:   s.Price.Amount,
		PriceCurrency: s.Price.Currency,
		PeriodStart:   s.PeriodStart,
		PeriodEnd:     s.PeriodEnd,
		AutoRenew:     s.AutoRenew,
		ProviderRef:   s.ProviderRef,
		CanceledAt:    s.CanceledAt,
		Metadata:      s.Metadata,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if !s.OrderID.IsNil() {
		m.OrderID = s.OrderID.String()
	}
	return m
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	s := &subscription.Subscription{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          subID,
		UserID:      userID,
		Tier:        user.Tier(m.Tier),
		Status:      subscription.Status(m.Status),
		Price:       types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		AutoRenew:   m.AutoRenew,
		ProviderRef: m.ProviderRef,
		CanceledAt:  m.CanceledAt,
		Metadata:    m.Metadata,
	}
	if m.OrderID != "" {
		if s.OrderID, err = id.ParseOrderID(m.OrderID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ==================== Flash sale models ====================

type flashSaleModel struct {
	grove.BaseModel `grove:"table:vault_flash_sales"`

	ID              string    `grove:"id,pk"`
	Title           string    `grove:"title"`
	CategoryID      string    `grove:"category_id"`
	DiscountPercent int       `grove:"discount_percent"`
	StartsAt        time.Time `grove:"starts_at"`
	EndsAt          time.Time `grove:"ends_at"`
	Status          string    `grove:"status"`
	Announced       bool      `grove:"announced"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
}

func toFlashSaleModel(fs *promo.FlashSale) *flashSaleModel {
	m := &flashSaleModel{
		ID:              fs.ID.String(),
		Title:           fs.Title,
		DiscountPercent: fs.DiscountPercent,
		StartsAt:        fs.StartsAt,
		EndsAt:          fs.EndsAt,
		Status:          string(fs.Status),
		Announced:       fs.Announced,
		CreatedAt:       fs.CreatedAt,
		UpdatedAt:       fs.UpdatedAt,
	}
	if !fs.CategoryID.IsNil() {
		m.CategoryID = fs.CategoryID.String()
	}
	return m
}

func fromFlashSaleModel(m *flashSaleModel) (*promo.FlashSale, error) {
	saleID, err := id.ParseFlashSaleID(m.ID)
	if err != nil {
		return nil, err
	}

	fs := &promo.FlashSale{
		Entity:          types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              saleID,
		Title:           m.Title,
		DiscountPercent: m.DiscountPercent,
		StartsAt:        m.StartsAt,
		EndsAt:          m.EndsAt,
		Status:          promo.Status(m.Status),
		Announced:       m.Announced,
	}
	if m.CategoryID != "" {
		if fs.CategoryID, err = id.ParseCategoryID(m.CategoryID); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// ==================== Drip models ====================

type dripModel struct {
	grove.BaseModel `grove:"table:vault_drips"`

	ID           string     `grove:"id,pk"`
	ImageID      string     `grove:"image_id"`
	AudienceTier string     `grove:"audience_tier"`
	ReleaseAt    time.Time  `grove:"release_at"`
	Teaser       string     `grove:"teaser"`
	Delivered    bool       `grove:"delivered"`
	DeliveredAt  *time.Time `grove:"delivered_at"`
	CreatedAt    time.Time  `grove:"created_at"`
	UpdatedAt    time.Time  `grove:"updated_at"`
}

func toDripModel(s *drip.Schedule) *dripModel {
	return &dripModel{
		ID:           s.ID.String(),
		ImageID:      s.ImageID.String(),
		AudienceTier: string(s.AudienceTier),
		ReleaseAt:    s.ReleaseAt,
		Teaser:       s.Teaser,
		Delivered:    s.Delivered,
		DeliveredAt:  s.DeliveredAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func fromDripModel(m *dripModel) (*drip.Schedule, error) {
	dripID, err := id.ParseDripID(m.ID)
	if err != nil {
		return nil, err
	}
	imageID, err := id.ParseImageID(m.ImageID)
	if err != nil {
		return nil, err
	}
	return &drip.Schedule{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           dripID,
		ImageID:      imageID,
		AudienceTier: user.Tier(m.AudienceTier),
		ReleaseAt:    m.ReleaseAt,
		Teaser:       m.Teaser,
		Delivered:    m.Delivered,
		DeliveredAt:  m.DeliveredAt,
	}, nil
}

// ==================== Loyalty models ====================

type loyaltyEntryModel struct {
	grove.BaseModel `grove:"table:vault_loyalty_entries"`

	ID        string    `grove:"id,pk"`
	UserID    string    `grove:"user_id"`
	Delta     int64     `grove:"delta"`
	Balance   int64     `grove:"balance"`
	Reason    string    `grove:"reason"`
	OrderID   string    `grove:"order_id"`
	Note      string    `grove:"note"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toLoyaltyEntryModel(e *loyalty.Entry) *loyaltyEntryModel {
	m := &loyaltyEntryModel{
		ID:        e.ID.String(),
		UserID:    e.UserID.String(),
		Delta:     e.Delta,
		Balance:   e.Balance,
		Reason:    string(e.Reason),
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if !e.OrderID.IsNil() {
		m.OrderID = e.OrderID.String()
	}
	return m
}

func fromLoyaltyEntryModel(m *loyaltyEntryModel) (*loyalty.Entry, error) {
	entryID, err := id.ParseLoyaltyEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	e := &loyalty.Entry{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:      entryID,
		UserID:  userID,
		Delta:   m.Delta,
		Balance: m.Balance,
		Reason:  loyalty.Reason(m.Reason),
		Note:    m.Note,
	}
	if m.OrderID != "" {
		if e.OrderID, err = id.ParseOrderID(m.OrderID); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ==================== Custom request models ====================

type requestModel struct {
	grove.BaseModel `grove:"table:vault_requests"`

	ID            string    `grove:"id,pk"`
	UserID        string    `grove:"user_id"`
	Description   string    `grove:"description"`
	Status        string    `grove:"status"`
	PriceAmount   int64     `grove:"price_amount"`
	PriceCurrency string    `grove:"price_currency"`
	AdminNote     string    `grove:"admin_note"`
	OrderID       string    `grove:"order_id"`
	ResultImage   string    `grove:"result_image"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toRequestModel(r *request.CustomRequest) *requestModel {
	m := &requestModel{
		ID:            r.ID.String(),
		UserID:        r.UserID.String(),
		Description:   r.Description,
		Status:        string(r.Status),
		PriceAmount:   r.Price.Amount,
		PriceCurrency: r.Price.Currency,
		AdminNote:     r.AdminNote,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if !r.OrderID.IsNil() {
		m.OrderID = r.OrderID.String()
	}
	if !r.ResultImage.IsNil() {
		m.ResultImage = r.ResultImage.String()
	}
	return m
}

func fromRequestModel(m *requestModel) (*request.CustomRequest, error) {
	requestID, err := id.ParseCustomRequestID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	r := &request.CustomRequest{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          requestID,
		UserID:      userID,
		Description: m.Description,
		Status:      request.Status(m.Status),
		Price:       types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		AdminNote:   m.AdminNote,
	}
	if m.OrderID != "" {
		if r.OrderID, err = id.ParseOrderID(m.OrderID); err != nil {
			return nil, err
		}
	}
	if m.ResultImage != "" {
		if r.ResultImage, err = id.ParseImageID(m.ResultImage); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ==================== Scheduled post models ====================

type postModel struct {
	grove.BaseModel `grove:"table:vault_posts"`

	ID         string     `grove:"id,pk"`
	ImageID    string     `grove:"image_id"`
	Caption    string     `grove:"caption"`
	PostAt     time.Time  `grove:"post_at"`
	Status     string     `grove:"status"`
	PostedAt   *time.Time `grove:"posted_at"`
	FailReason string     `grove:"fail_reason"`
	CreatedAt  time.Time  `grove:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"`
}

func toPostModel(p *post.ScheduledPost) *postModel {
	return &postModel{
		ID:         p.ID.String(),
		ImageID:    p.ImageID.String(),
		Caption:    p.Caption,
		PostAt:     p.PostAt,
		Status:     string(p.Status),
		PostedAt:   p.PostedAt,
		FailReason: p.FailReason,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func fromPostModel(m *postModel) (*post.ScheduledPost, error) {
	postID, err := id.ParseScheduledPostID(m.ID)
	if err != nil {
		return nil, err
	}
	imageID, err := id.ParseImageID(m.ImageID)
	if err != nil {
		return nil, err
	}
	return &post.ScheduledPost{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         postID,
		ImageID:    imageID,
		Caption:    m.Caption,
		PostAt:     m.PostAt,
		Status:     post.Status(m.Status),
		PostedAt:   m.PostedAt,
		FailReason: m.FailReason,
	}, nil
}

// ==================== Webhook models ====================

type processedEventModel struct {
	grove.BaseModel `grove:"table:vault_processed_events"`

	ID        string    `grove:"id,pk"`
	Key       string    `grove:"key"`
	Type      string    `grove:"type"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

type pendingEventModel struct {
	grove.BaseModel `grove:"table:vault_pending_events"`

	ID             string          `grove:"id,pk"`
	Key            string          `grove:"key"`
	Type           string          `grove:"type"`
	ProviderRef    string          `grove:"provider_ref"`
	CaptureRef     string          `grove:"capture_ref"`
	Raw            json.RawMessage `grove:"raw,type:jsonb"`
	Attempts       int             `grove:"attempts"`
	LastError      string          `grove:"last_error"`
	Reconciliation bool            `grove:"reconciliation"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toPendingEventModel(p *webhook.PendingEvent) *pendingEventModel {
	return &pendingEventModel{
		ID:             p.ID.String(),
		Key:            p.Key,
		Type:           p.Type,
		ProviderRef:    p.ProviderRef,
		CaptureRef:     p.CaptureRef,
		Raw:            p.Raw,
		Attempts:       p.Attempts,
		LastError:      p.LastError,
		Reconciliation: p.Reconciliation,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPendingEventModel(m *pendingEventModel) (*webhook.PendingEvent, error) {
	eventID, err := id.ParseWebhookEventID(m.ID)
	if err != nil {
		return nil, err
	}
	return &webhook.PendingEvent{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             eventID,
		Key:            m.Key,
		Type:           m.Type,
		ProviderRef:    m.ProviderRef,
		CaptureRef:     m.CaptureRef,
		Raw:            m.Raw,
		Attempts:       m.Attempts,
		LastError:      m.LastError,
		Reconciliation: m.Reconciliation,
	}, nil
}
