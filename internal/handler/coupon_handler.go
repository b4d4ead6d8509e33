package handler

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"coupon-api/internal/apierror"
	"coupon-api/internal/model"
)

// CouponServiceInterface defines the interface for coupon resource logic.
type CouponServiceInterface interface {
	List(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error)
	Get(ctx context.Context, subject string, id int64) (*model.CouponResponse, error)
	GetByCode(ctx context.Context, subject string, code string) (*model.CouponResponse, error)
	Count(ctx context.Context, subject string, filter model.ListFilter) (int, error)
	Create(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error)
	Edit(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error)
	Delete(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error)
}

// CouponHandler handles HTTP requests for the coupon resource.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service
// and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// subject extracts the caller identity the authorizer decides on.
func subject(c *fiber.Ctx) string {
	return c.Get("X-Api-Key")
}

// respondError maps a service failure to the structured error
// envelope. Anything outside the taxonomy is logged and becomes a 500.
func respondError(c *fiber.Ctx, err error) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(fiber.Map{
			"error": fiber.Map{"code": apiErr.Code, "message": apiErr.Message},
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("coupon request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"code": "internal_error", "message": "internal server error"},
	})
}

// queryFilter assembles the list/count filter from query parameters.
// Unknown filter keys are forwarded and whitelisted by the repository.
func queryFilter(c *fiber.Ctx) model.ListFilter {
	fields := make(map[string]string)
	for _, key := range []string{"code", "type"} {
		if v := c.Query(key); v != "" {
			fields[key] = v
		}
	}
	return model.ListFilter{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 0),
		Fields:  fields,
	}
}

// ListCoupons handles GET /api/coupons requests. Pagination metadata
// is exposed via the X-Total-Count and X-Total-Pages headers.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	list, err := h.service.List(c.Context(), subject(c), queryFilter(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Set("X-Total-Count", strconv.Itoa(list.Total))
	c.Set("X-Total-Pages", strconv.Itoa(list.TotalPages()))
	return c.JSON(model.CouponsEnvelope{Coupons: list.Coupons})
}

// GetCoupon handles GET /api/coupons/:id requests. A non-numeric ID
// cannot name a coupon and is reported as not found, matching the
// numeric route constraint.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, apierror.NotFound("ID"))
	}

	coupon, err := h.service.Get(c.Context(), subject(c), int64(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(model.CouponEnvelope{Coupon: coupon})
}

// GetCouponByCode handles GET /api/coupons/code/:code requests.
func (h *CouponHandler) GetCouponByCode(c *fiber.Ctx) error {
	code, err := url.PathUnescape(c.Params("code"))
	if err != nil || h.validator.Var(code, "couponcode") != nil {
		return respondError(c, apierror.NotFound("code"))
	}

	coupon, err := h.service.GetByCode(c.Context(), subject(c), code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(model.CouponEnvelope{Coupon: coupon})
}

// CountCoupons handles GET /api/coupons/count requests.
func (h *CouponHandler) CountCoupons(c *fiber.Ctx) error {
	count, err := h.service.Count(c.Context(), subject(c), queryFilter(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(model.CountEnvelope{Count: count})
}

// CreateCoupon handles POST /api/coupons requests. The body is a
// sparse field map; validation ordering lives in the service.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"code": "invalid_body", "message": "invalid request body"},
		})
	}

	coupon, err := h.service.Create(c.Context(), subject(c), data)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model.CouponEnvelope{Coupon: coupon})
}

// EditCoupon handles PUT /api/coupons/:id requests with a partial
// field map body.
func (h *CouponHandler) EditCoupon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, apierror.NotFound("ID"))
	}

	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"code": "invalid_body", "message": "invalid request body"},
		})
	}

	coupon, err := h.service.Edit(c.Context(), subject(c), int64(id), data)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(model.CouponEnvelope{Coupon: coupon})
}

// DeleteCoupon handles DELETE /api/coupons/:id requests. The force
// query flag switches from trash to permanent removal.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, apierror.NotFound("ID"))
	}

	force := c.Query("force") == "true"

	ack, err := h.service.Delete(c.Context(), subject(c), int64(id), force)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ack)
}
