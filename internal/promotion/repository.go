package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository interface {
	ForProducts(ctx context.Context, productIDs []int64) ([]pricing.Promotion, error)
	ListActive(ctx context.Context, now time.Time) ([]Promotion, error)
	Create(ctx context.Context, p *pricing.Promotion) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectPromotions = `
	SELECT p.id, p.title, p.description, p.start_date, p.end_date, p.discount_rate, p.active,
	       COALESCE(array_agg(pp.item_id ORDER BY pp.item_id) FILTER (WHERE pp.item_id IS NOT NULL), '{}')
	FROM promotions p
	LEFT JOIN promotion_products pp ON pp.promotion_id = p.id`

// ForProducts returns every promotion listing at least one of productIDs,
// regardless of its window or active flag. The pricing engine decides which
// of them apply at a given instant.
func (r *PostgresRepository) ForProducts(ctx context.Context, productIDs []int64) ([]pricing.Promotion, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectPromotions+`
	WHERE p.id IN (SELECT promotion_id FROM promotion_products WHERE item_id = ANY($1))
	GROUP BY p.id
	ORDER BY p.id`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("select promotions: %w", err)
	}
	return collectPromotions(rows)
}

// ListActive returns promotions in effect at now, soonest ending first.
func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]Promotion, error) {
	rows, err := r.pool.Query(ctx, selectPromotions+`
	WHERE p.active AND p.start_date <= $1 AND p.end_date >= $1
	GROUP BY p.id
	ORDER BY p.end_date, p.id`, now)
	if err != nil {
		return nil, fmt.Errorf("select active promotions: %w", err)
	}
	promos, err := collectPromotions(rows)
	if err != nil {
		return nil, err
	}
	if len(promos) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(promos))
	for i, p := range promos {
		ids[i] = p.ID
	}
	products, err := r.productsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Promotion, len(promos))
	for i, p := range promos {
		out[i] = Promotion{Promotion: p, Products: products[p.ID]}
	}
	return out, nil
}

func (r *PostgresRepository) productsFor(ctx context.Context, promotionIDs []int64) (map[int64][]Product, error) {
	rows, err := r.pool.Query(ctx, `
	SELECT pp.promotion_id, i.id, i.name, i.slug
	FROM promotion_products pp
	JOIN items i ON i.id = pp.item_id
	WHERE pp.promotion_id = ANY($1)
	ORDER BY pp.promotion_id, i.name`, promotionIDs)
	if err != nil {
		return nil, fmt.Errorf("select promotion products: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Product)
	for rows.Next() {
		var (
			promoID int64
			p       Product
		)
		if err := rows.Scan(&promoID, &p.ID, &p.Name, &p.Slug); err != nil {
			return nil, fmt.Errorf("scan promotion product: %w", err)
		}
		out[promoID] = append(out[promoID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *pricing.Promotion) error {
	if err := Validate(*p); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO promotions (title, description, start_date, end_date, discount_rate, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Title, p.Description, p.StartTime, p.EndTime, p.DiscountRate, p.Active).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}

	for _, productID := range p.EligibleProductIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO promotion_products (promotion_id, item_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, p.ID, productID); err != nil {
			return fmt.Errorf("insert promotion product: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func collectPromotions(rows pgx.Rows) ([]pricing.Promotion, error) {
	defer rows.Close()

	var out []pricing.Promotion
	for rows.Next() {
		var p pricing.Promotion
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.StartTime, &p.EndTime, &p.DiscountRate, &p.Active, &p.EligibleProductIDs); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
