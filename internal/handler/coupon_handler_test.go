package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coupon-api/internal/apierror"
	"coupon-api/internal/model"
	"coupon-api/internal/validator"
)

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	listFn      func(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error)
	getFn       func(ctx context.Context, subject string, id int64) (*model.CouponResponse, error)
	getByCodeFn func(ctx context.Context, subject string, code string) (*model.CouponResponse, error)
	countFn     func(ctx context.Context, subject string, filter model.ListFilter) (int, error)
	createFn    func(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error)
	editFn      func(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error)
	deleteFn    func(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error)
}

func (m *mockCouponService) List(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error) {
	if m.listFn != nil {
		return m.listFn(ctx, subject, filter)
	}
	return &model.CouponList{Coupons: []*model.CouponResponse{}, PerPage: 10}, nil
}

func (m *mockCouponService) Get(ctx context.Context, subject string, id int64) (*model.CouponResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, subject, id)
	}
	return nil, apierror.NotFound("ID")
}

func (m *mockCouponService) GetByCode(ctx context.Context, subject string, code string) (*model.CouponResponse, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, subject, code)
	}
	return nil, apierror.NotFound("code")
}

func (m *mockCouponService) Count(ctx context.Context, subject string, filter model.ListFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, subject, filter)
	}
	return 0, nil
}

func (m *mockCouponService) Create(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, subject, data)
	}
	return nil, nil
}

func (m *mockCouponService) Edit(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error) {
	if m.editFn != nil {
		return m.editFn(ctx, subject, id, data)
	}
	return nil, nil
}

func (m *mockCouponService) Delete(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, subject, id, force)
	}
	return &model.DeleteAck{ID: id, Deleted: true}, nil
}

func setupTestApp(mockSvc *mockCouponService) *fiber.App {
	app := fiber.New()
	h := NewCouponHandler(mockSvc, validator.New())
	app.Get("/api/coupons", h.ListCoupons)
	app.Post("/api/coupons", h.CreateCoupon)
	app.Get("/api/coupons/count", h.CountCoupons)
	app.Get("/api/coupons/code/:code", h.GetCouponByCode)
	app.Get("/api/coupons/:id", h.GetCoupon)
	app.Put("/api/coupons/:id", h.EditCoupon)
	app.Delete("/api/coupons/:id", h.DeleteCoupon)
	return app
}

func sampleResponse(id int64, code string) *model.CouponResponse {
	return &model.CouponResponse{
		ID:     id,
		Code:   code,
		Type:   "percent",
		Amount: "10.00",
	}
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, resp, &body)
	return body.Error.Code
}

func TestGetCoupon_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		getFn: func(ctx context.Context, subject string, id int64) (*model.CouponResponse, error) {
			assert.Equal(t, int64(5), id)
			return sampleResponse(5, "SAVE10"), nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body model.CouponEnvelope
	decodeBody(t, resp, &body)
	require.NotNil(t, body.Coupon)
	assert.Equal(t, "SAVE10", body.Coupon.Code)
}

func TestGetCoupon_NonNumericID(t *testing.T) {
	var called bool
	mockSvc := &mockCouponService{
		getFn: func(ctx context.Context, subject string, id int64) (*model.CouponResponse, error) {
			called = true
			return nil, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, called, "service must not be consulted for a malformed ID")
}

func TestGetCoupon_NotFound(t *testing.T) {
	app := setupTestApp(&mockCouponService{})

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, resp))
}

func TestGetCouponByCode_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		getByCodeFn: func(ctx context.Context, subject string, code string) (*model.CouponResponse, error) {
			assert.Equal(t, "SAVE 10", code)
			return sampleResponse(5, "SAVE 10"), nil
		},
	}
	app := setupTestApp(mockSvc)

	// Codes may contain spaces, encoded in the path.
	req := httptest.NewRequest(http.MethodGet, "/api/coupons/code/SAVE%2010", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetCouponByCode_InvalidPattern(t *testing.T) {
	var called bool
	mockSvc := &mockCouponService{
		getByCodeFn: func(ctx context.Context, subject string, code string) (*model.CouponResponse, error) {
			called = true
			return nil, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/code/%21bad", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, called, "codes must start with a word character")
}

func TestListCoupons_PaginationHeaders(t *testing.T) {
	mockSvc := &mockCouponService{
		listFn: func(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error) {
			assert.Equal(t, 2, filter.Page)
			return &model.CouponList{
				Coupons: []*model.CouponResponse{sampleResponse(1, "A")},
				Total:   25,
				PerPage: 10,
			}, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons?page=2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "25", resp.Header.Get("X-Total-Count"))
	assert.Equal(t, "3", resp.Header.Get("X-Total-Pages"))
}

func TestListCoupons_EmptyResult(t *testing.T) {
	mockSvc := &mockCouponService{
		listFn: func(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error) {
			return &model.CouponList{Coupons: []*model.CouponResponse{}, Total: 0, PerPage: 10}, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-Total-Count"))

	var body map[string]json.RawMessage
	decodeBody(t, resp, &body)
	assert.JSONEq(t, "[]", string(body["coupons"]), "empty list is an empty array, not null")
}

func TestListCoupons_ForwardsFieldFilters(t *testing.T) {
	mockSvc := &mockCouponService{
		listFn: func(ctx context.Context, subject string, filter model.ListFilter) (*model.CouponList, error) {
			assert.Equal(t, "percent", filter.Fields["type"])
			return &model.CouponList{Coupons: []*model.CouponResponse{}, PerPage: 10}, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons?type=percent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCountCoupons_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		countFn: func(ctx context.Context, subject string, filter model.ListFilter) (int, error) {
			return 5, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/count", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body model.CountEnvelope
	decodeBody(t, resp, &body)
	assert.Equal(t, 5, body.Count)
}

func TestCountCoupons_Forbidden(t *testing.T) {
	mockSvc := &mockCouponService{
		countFn: func(ctx context.Context, subject string, filter model.ListFilter) (int, error) {
			return 0, apierror.Forbidden("read the coupons count")
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/count", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "forbidden", errorCode(t, resp))
}

func TestCreateCoupon_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		createFn: func(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error) {
			assert.Equal(t, "secret-key", subject)
			assert.Equal(t, "SAVE10", data["code"])
			return sampleResponse(7, "SAVE10"), nil
		},
	}
	app := setupTestApp(mockSvc)

	body := `{"code": "SAVE10", "type": "percent", "amount": "10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", "secret-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var envelope model.CouponEnvelope
	decodeBody(t, resp, &envelope)
	require.NotNil(t, envelope.Coupon)
	assert.Equal(t, int64(7), envelope.Coupon.ID)
}

func TestCreateCoupon_MissingParameter(t *testing.T) {
	mockSvc := &mockCouponService{
		createFn: func(ctx context.Context, subject string, data map[string]any) (*model.CouponResponse, error) {
			return nil, apierror.MissingParameter("code")
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_parameter", errorCode(t, resp))
}

func TestCreateCoupon_InvalidBody(t *testing.T) {
	app := setupTestApp(&mockCouponService{})

	req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEditCoupon_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		editFn: func(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error) {
			assert.Equal(t, int64(5), id)
			assert.Equal(t, "20", data["amount"])
			return sampleResponse(5, "SAVE10"), nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodPut, "/api/coupons/5", bytes.NewBufferString(`{"amount": "20"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestEditCoupon_DuplicateCode(t *testing.T) {
	mockSvc := &mockCouponService{
		editFn: func(ctx context.Context, subject string, id int64, data map[string]any) (*model.CouponResponse, error) {
			return nil, apierror.DuplicateCouponCode("SAVE10")
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodPut, "/api/coupons/5", bytes.NewBufferString(`{"code": "SAVE10"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "coupon_code_already_exists", errorCode(t, resp))
}

func TestDeleteCoupon_ForceFlag(t *testing.T) {
	var capturedForce bool
	mockSvc := &mockCouponService{
		deleteFn: func(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error) {
			capturedForce = force
			return &model.DeleteAck{ID: id, Deleted: true}, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/coupons/5?force=true", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, capturedForce)

	var ack model.DeleteAck
	decodeBody(t, resp, &ack)
	assert.Equal(t, int64(5), ack.ID)
	assert.True(t, ack.Deleted)
}

func TestDeleteCoupon_DefaultIsSoft(t *testing.T) {
	var capturedForce bool
	mockSvc := &mockCouponService{
		deleteFn: func(ctx context.Context, subject string, id int64, force bool) (*model.DeleteAck, error) {
			capturedForce = force
			return &model.DeleteAck{ID: id, Deleted: true}, nil
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/coupons/5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, capturedForce)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	mockSvc := &mockCouponService{
		getFn: func(ctx context.Context, subject string, id int64) (*model.CouponResponse, error) {
			return nil, assert.AnError
		},
	}
	app := setupTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", errorCode(t, resp))
}
