package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"coupon-api/internal/apierror"
	"coupon-api/internal/model"
)

// PoolInterface defines the database operations needed by the repository.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// filterColumns whitelists the payload filter keys forwarded to the
// storage query and maps them to their columns.
var filterColumns = map[string]string{
	"code": "code",
	"type": "discount_type",
}

const couponColumns = `id, code, status, discount_type, amount, individual_use,
	product_ids, exclude_product_ids, usage_limit, usage_limit_per_user,
	limit_usage_to_x_items, usage_count, expiry_date, apply_before_tax,
	free_shipping, product_category_ids, exclude_product_category_ids,
	exclude_sale_items, minimum_amount, customer_emails, created_at, updated_at`

// CouponRepository provides data access for coupons using pgx. The
// yes/no string booleans and comma-delimited ID lists used by the
// storage layout are converted here and nowhere else.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom
// pool interface. This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByID retrieves a coupon by ID regardless of status.
// Returns nil, nil if no row exists (service layer handles this).
func (r *CouponRepository) FindByID(ctx context.Context, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon %d: %w", id, err)
	}
	return c, nil
}

// FindByCode retrieves a published coupon by its case-insensitive code.
// Returns nil, nil if no published coupon carries the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE lower(code) = lower($1) AND status = $2
		ORDER BY id DESC LIMIT 1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, code, model.StatusPublish))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon by code %s: %w", code, err)
	}
	return c, nil
}

// CodeExists reports whether a published coupon other than excludeID
// already carries the code. Pass excludeID 0 on create.
func (r *CouponRepository) CodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM coupons
		WHERE lower(code) = lower($1) AND status = $2 AND id <> $3
	)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, code, model.StatusPublish, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check coupon code %s: %w", code, err)
	}
	return exists, nil
}

// List returns the published coupons matching the filter for the
// requested page, plus the total match count for pagination metadata.
// List and Count share the same predicate.
func (r *CouponRepository) List(ctx context.Context, filter model.ListFilter) ([]*model.Coupon, int, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildFilter(filter)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 10
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM coupons %s ORDER BY id LIMIT $%d OFFSET $%d`,
		couponColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]*model.Coupon, 0, perPage)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, total, nil
}

// Count returns the number of published coupons matching the filter.
func (r *CouponRepository) Count(ctx context.Context, filter model.ListFilter) (int, error) {
	where, args := buildFilter(filter)

	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM coupons `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count coupons: %w", err)
	}
	return count, nil
}

// Create inserts a new coupon and returns its assigned ID.
// Returns DuplicateCouponCode if the partial unique index on published
// codes rejects the insert.
func (r *CouponRepository) Create(ctx context.Context, c *model.Coupon) (int64, error) {
	query := `INSERT INTO coupons (
		code, status, discount_type, amount, individual_use,
		product_ids, exclude_product_ids, usage_limit, usage_limit_per_user,
		limit_usage_to_x_items, expiry_date, apply_before_tax, free_shipping,
		product_category_ids, exclude_product_category_ids, exclude_sale_items,
		minimum_amount, customer_emails
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		c.Code, c.Status, c.DiscountType, c.Amount, yesNo(c.IndividualUse),
		joinIDs(c.ProductIDs), joinIDs(c.ExcludeProductIDs), c.UsageLimit, c.UsageLimitPerUser,
		c.LimitUsageToXItems, c.ExpiryDate, yesNo(c.ApplyBeforeTax), yesNo(c.FreeShipping),
		joinIDs(c.ProductCategoryIDs), joinIDs(c.ExcludeProductCategoryIDs), yesNo(c.ExcludeSaleItems),
		c.MinimumAmount, strings.Join(c.CustomerEmails, ","),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apierror.DuplicateCouponCode(c.Code)
		}
		return 0, fmt.Errorf("insert coupon: %w", err)
	}
	return id, nil
}

// UpdateFields writes the candidate coupon's code and field values over
// the stored record. Status, usage count and timestamps are not
// client-writable; updated_at is bumped here.
func (r *CouponRepository) UpdateFields(ctx context.Context, id int64, c *model.Coupon) error {
	query := `UPDATE coupons SET
		code = $1, discount_type = $2, amount = $3, individual_use = $4,
		product_ids = $5, exclude_product_ids = $6, usage_limit = $7,
		usage_limit_per_user = $8, limit_usage_to_x_items = $9, expiry_date = $10,
		apply_before_tax = $11, free_shipping = $12, product_category_ids = $13,
		exclude_product_category_ids = $14, exclude_sale_items = $15,
		minimum_amount = $16, customer_emails = $17, updated_at = now()
	WHERE id = $18`

	_, err := r.pool.Exec(ctx, query,
		c.Code, c.DiscountType, c.Amount, yesNo(c.IndividualUse),
		joinIDs(c.ProductIDs), joinIDs(c.ExcludeProductIDs), c.UsageLimit,
		c.UsageLimitPerUser, c.LimitUsageToXItems, c.ExpiryDate,
		yesNo(c.ApplyBeforeTax), yesNo(c.FreeShipping), joinIDs(c.ProductCategoryIDs),
		joinIDs(c.ExcludeProductCategoryIDs), yesNo(c.ExcludeSaleItems),
		c.MinimumAmount, strings.Join(c.CustomerEmails, ","), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.DuplicateCouponCode(c.Code)
		}
		return fmt.Errorf("update coupon %d: %w", id, err)
	}
	return nil
}

// SoftDelete moves a coupon to trash, freeing its code for reuse.
func (r *CouponRepository) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE coupons SET status = $1, updated_at = now() WHERE id = $2`,
		model.StatusTrash, id)
	if err != nil {
		return fmt.Errorf("trash coupon %d: %w", id, err)
	}
	return nil
}

// HardDelete permanently removes a coupon.
func (r *CouponRepository) HardDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon %d: %w", id, err)
	}
	return nil
}

// buildFilter renders the shared List/Count predicate: published
// status plus whitelisted caller filters. Unknown filter keys are
// ignored.
func buildFilter(filter model.ListFilter) (string, []any) {
	clauses := []string{"status = $1"}
	args := []any{model.StatusPublish}

	for key, value := range filter.Fields {
		col, ok := filterColumns[key]
		if !ok {
			continue
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("lower(%s) = lower($%d)", col, len(args)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// scanCoupon reads one coupon row, converting the storage
// representation into the canonical record.
func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var (
		c                model.Coupon
		individualUse    string
		applyBeforeTax   string
		freeShipping     string
		excludeSale      string
		productIDs       string
		excludeProducts  string
		categoryIDs      string
		excludeCats      string
		customerEmails   string
		amount           decimal.Decimal
		minimumAmount    decimal.Decimal
		expiryDate       *time.Time
	)

	err := row.Scan(
		&c.ID, &c.Code, &c.Status, &c.DiscountType, &amount, &individualUse,
		&productIDs, &excludeProducts, &c.UsageLimit, &c.UsageLimitPerUser,
		&c.LimitUsageToXItems, &c.UsageCount, &expiryDate, &applyBeforeTax,
		&freeShipping, &categoryIDs, &excludeCats, &excludeSale,
		&minimumAmount, &customerEmails, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Amount = amount
	c.MinimumAmount = minimumAmount
	c.ExpiryDate = expiryDate
	c.IndividualUse = individualUse == "yes"
	c.ApplyBeforeTax = applyBeforeTax == "yes"
	c.FreeShipping = freeShipping == "yes"
	c.ExcludeSaleItems = excludeSale == "yes"
	c.ProductIDs = splitIDs(productIDs)
	c.ExcludeProductIDs = splitIDs(excludeProducts)
	c.ProductCategoryIDs = splitIDs(categoryIDs)
	c.ExcludeProductCategoryIDs = splitIDs(excludeCats)
	c.CustomerEmails = splitEmails(customerEmails)
	return &c, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func splitEmails(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// isUniqueViolation reports whether err is the Postgres unique
// violation raised by the published-code index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
