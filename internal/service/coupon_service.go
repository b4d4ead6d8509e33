package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coupon-api/internal/apierror"
	"coupon-api/internal/auth"
	"coupon-api/internal/model"
	"coupon-api/internal/normalize"
	"coupon-api/internal/notify"
)

// dateFormat is the fixed UTC serialization used for all response
// timestamps and expiry dates.
const dateFormat = "2006-01-02T15:04:05Z"

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, filter model.ListFilter) ([]*model.Coupon, int, error)
	Count(ctx context.Context, filter model.ListFilter) (int, error)
	Create(ctx context.Context, c *model.Coupon) (int64, error)
	UpdateFields(ctx context.Context, id int64, c *model.Coupon) error
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
}

// CodeHook transforms a submitted code before the uniqueness check and
// any write. The default hook trims surrounding whitespace.
type CodeHook func(code string) string

// CouponService orchestrates authorization, validation and repository
// access for the coupon resource operations.
type CouponService struct {
	repo       CouponRepositoryInterface
	guard      UniquenessGuard
	authz      auth.Authorizer
	sink       notify.Sink
	normalizer *normalize.Normalizer
	codeHook   CodeHook
}

// NewCouponService creates a CouponService with the given collaborators.
func NewCouponService(
	repo CouponRepositoryInterface,
	guard UniquenessGuard,
	authz auth.Authorizer,
	sink notify.Sink,
	normalizer *normalize.Normalizer,
) *CouponService {
	return &CouponService{
		repo:       repo,
		guard:      guard,
		authz:      authz,
		sink:       sink,
		normalizer: normalizer,
		codeHook:   strings.TrimSpace,
	}
}

// SetCodeHook replaces the pre-write code transform.
func (s *CouponService) SetCodeHook(hook CodeHook) {
	if hook != nil {
		s.codeHook = hook
	}
}

// List returns the published coupons matching the filter. Coupons the
// subject may not read are silently omitted; the total still reflects
// the full match count for pagination.
func (s *CouponService) List(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}

	coupons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	shaped := make([]*model.CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		if !s.authz.Can(ctx, subject, auth.ActionRead, c.ID) {
			continue
		}
		shaped = append(shaped, shapeCoupon(c))
	}

	return &model.CouponList{
		Coupons: shaped,
		Total:   total,
		PerPage: filter.PerPage,
	}, nil
}

// Get returns the shaped coupon for the given ID. Unpublished and
// missing coupons are both reported as not found.
func (s *CouponService) Get(ctx context.Context, subject string, id int64) (*model.CouponResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if c == nil || c.Status != model.StatusPublish {
		return nil, apierror.NotFound("ID")
	}
	if !s.authz.Can(ctx, subject, auth.ActionRead, id) {
		return nil, apierror.Forbidden("read this coupon")
	}
	return shapeCoupon(c), nil
}

// GetByCode resolves a code to its published coupon and delegates to Get.
func (s *CouponService) GetByCode(ctx context.Context, subject string, code string) (*model.CouponResponse, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}
	if c == nil {
		return nil, apierror.NotFound("code")
	}
	return s.Get(ctx, subject, c.ID)
}

// Count returns the number of published coupons matching the filter.
// Requires the read_private capability regardless of per-record
// visibility.
func (s *CouponService) Count(ctx context.Context, subject string, filter model.ListFilter) (int, error) {
	if !s.authz.Can(ctx, subject, auth.ActionReadPrivate, 0) {
		return 0, apierror.Forbidden("read the coupons count")
	}
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count coupons: %w", err)
	}
	return count, nil
}

// Create validates and stores a new coupon, then returns it via Get.
// Required fields are checked in order code, type, amount; the first
// missing one is reported.
func (s *CouponService) Create(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error) {
	if !s.authz.Can(ctx, subject, auth.ActionPublish, 0) {
		return nil, apierror.Forbidden("create this coupon")
	}

	for _, field := range []string{"code", "type", "amount"} {
		if _, ok := data[field]; !ok {
			return nil, apierror.MissingParameter(field)
		}
	}

	typeVal, _ := data["type"].(string)
	if !model.IsValidCouponType(strings.TrimSpace(typeVal)) {
		return nil, apierror.InvalidCouponType(model.CouponTypes())
	}

	rawCode, _ := data["code"].(string)
	code := s.codeHook(rawCode)
	if code == "" {
		return nil, apierror.MissingParameter("code")
	}

	exists, err := s.guard.Check(ctx, code, 0)
	if err != nil {
		return nil, fmt.Errorf("check coupon code: %w", err)
	}
	if exists {
		return nil, apierror.DuplicateCouponCode(code)
	}

	candidate, err := s.normalizer.Apply(data, nil)
	if err != nil {
		return nil, err
	}
	candidate.Code = code
	candidate.Status = model.StatusPublish

	id, err := s.repo.Create(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.EventCouponCreated, id, data)

	return s.Get(ctx, subject, id)
}

// Edit applies a partial update to an existing published coupon and
// returns the updated record via Get. A submitted code is checked
// against the guard excluding the coupon itself, so re-submitting the
// current code succeeds.
func (s *CouponService) Edit(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if existing == nil || existing.Status != model.StatusPublish {
		return nil, apierror.NotFound("ID")
	}
	if !s.authz.Can(ctx, subject, auth.ActionEdit, id) {
		return nil, apierror.Forbidden("edit this coupon")
	}

	code := existing.Code
	if v, ok := data["code"]; ok {
		rawCode, _ := v.(string)
		code = s.codeHook(rawCode)
		if code == "" {
			return nil, apierror.InvalidFieldFormat("code")
		}

		exists, err := s.guard.Check(ctx, code, id)
		if err != nil {
			return nil, fmt.Errorf("check coupon code: %w", err)
		}
		if exists {
			return nil, apierror.DuplicateCouponCode(code)
		}
	}

	if v, ok := data["type"]; ok {
		typeVal, _ := v.(string)
		if !model.IsValidCouponType(strings.TrimSpace(typeVal)) {
			return nil, apierror.InvalidCouponType(model.CouponTypes())
		}
	}

	candidate, err := s.normalizer.Apply(data, existing)
	if err != nil {
		return nil, err
	}
	candidate.Code = code

	if err := s.repo.UpdateFields(ctx, id, candidate); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.EventCouponUpdated, id, data)

	return s.Get(ctx, subject, id)
}

// Delete trashes a coupon, or permanently removes it when force is
// set. Returns an acknowledgement rather than the full record.
func (s *CouponService) Delete(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if existing == nil {
		return nil, apierror.NotFound("ID")
	}
	if !s.authz.Can(ctx, subject, auth.ActionDelete, id) {
		return nil, apierror.Forbidden("delete this coupon")
	}

	if force {
		err = s.repo.HardDelete(ctx, id)
	} else {
		err = s.repo.SoftDelete(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.EventCouponDeleted, id, nil)

	return &model.DeleteAck{ID: id, Deleted: true}, nil
}

// shapeCoupon renders the canonical record into its external
// representation. All read paths share this single transformation.
func shapeCoupon(c *model.Coupon) *model.CouponResponse {
	return &model.CouponResponse{
		ID:                        c.ID,
		Code:                      c.Code,
		Type:                      c.DiscountType,
		CreatedAt:                 c.CreatedAt.UTC().Format(dateFormat),
		UpdatedAt:                 c.UpdatedAt.UTC().Format(dateFormat),
		Amount:                    c.Amount.StringFixed(2),
		IndividualUse:             c.IndividualUse,
		ProductIDs:                idsOrEmpty(c.ProductIDs),
		ExcludeProductIDs:         idsOrEmpty(c.ExcludeProductIDs),
		UsageLimit:                nullableLimit(c.UsageLimit),
		UsageLimitPerUser:         nullableLimit(c.UsageLimitPerUser),
		LimitUsageToXItems:        c.LimitUsageToXItems,
		UsageCount:                c.UsageCount,
		ExpiryDate:                formatDate(c.ExpiryDate),
		ApplyBeforeTax:            c.ApplyBeforeTax,
		EnableFreeShipping:        c.FreeShipping,
		ProductCategoryIDs:        idsOrEmpty(c.ProductCategoryIDs),
		ExcludeProductCategoryIDs: idsOrEmpty(c.ExcludeProductCategoryIDs),
		ExcludeSaleItems:          c.ExcludeSaleItems,
		MinimumAmount:             c.MinimumAmount.StringFixed(2),
		CustomerEmails:            emailsOrEmpty(c.CustomerEmails),
	}
}

// nullableLimit surfaces an absent/zero usage limit as null, never 0.
func nullableLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateFormat)
	return &s
}

func idsOrEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func emailsOrEmpty(emails []string) []string {
	if emails == nil {
		return []string{}
	}
	return emails
}
