package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

type Filter struct {
	Query      string
	Categories []string
	Labels     []string
	Sort       string
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]Item, error)
	GetBySlug(ctx context.Context, slug string) (Item, error)
	Facets(ctx context.Context) (Facets, error)
	Create(ctx context.Context, it *Item) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const itemColumns = `id, name, category, price, label, image_url, description, stock, slug, farm_location, carbon_footprint`

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Item, error) {
	query, args := buildListQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		where = append(where, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if len(f.Labels) > 0 {
		args = append(args, f.Labels)
		where = append(where, fmt.Sprintf("label = ANY($%d)", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + itemColumns + " FROM items")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	switch f.Sort {
	case SortPriceAsc:
		b.WriteString(" ORDER BY price ASC, id")
	case SortPriceDesc:
		b.WriteString(" ORDER BY price DESC, id")
	default:
		b.WriteString(" ORDER BY id")
	}
	return b.String(), args
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE slug = $1`, slug)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("select item: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) Facets(ctx context.Context) (Facets, error) {
	var f Facets

	cats, err := r.distinct(ctx, `SELECT DISTINCT category FROM items ORDER BY category`)
	if err != nil {
		return Facets{}, fmt.Errorf("select categories: %w", err)
	}
	for _, c := range cats {
		f.Categories = append(f.Categories, Choice{Key: c, Name: Category(c).DisplayName()})
	}

	labels, err := r.distinct(ctx, `SELECT DISTINCT label FROM items WHERE label <> '' ORDER BY label`)
	if err != nil {
		return Facets{}, fmt.Errorf("select labels: %w", err)
	}
	for _, l := range labels {
		f.Labels = append(f.Labels, Choice{Key: l, Name: Label(l).DisplayName()})
	}
	return f, nil
}

func (r *PostgresRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Create inserts it, deriving the slug from the name when empty.
func (r *PostgresRepository) Create(ctx context.Context, it *Item) error {
	if it.Slug == "" {
		it.Slug = Slugify(it.Name)
	}
	if it.ImageURL == "" {
		it.ImageURL = DefaultImageURL
	}
	if !it.Category.Valid() {
		return fmt.Errorf("create item %q: unknown category %q", it.Name, it.Category)
	}
	if !it.Label.Valid() {
		return fmt.Errorf("create item %q: unknown label %q", it.Name, it.Label)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("create item %q: negative price", it.Name)
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO items (name, category, price, label, image_url, description, stock, slug, farm_location, carbon_footprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price, label = EXCLUDED.label,
		    image_url = EXCLUDED.image_url, description = EXCLUDED.description, stock = EXCLUDED.stock,
		    farm_location = EXCLUDED.farm_location, carbon_footprint = EXCLUDED.carbon_footprint
		RETURNING id
	`, it.Name, string(it.Category), it.Price, string(it.Label), it.ImageURL, it.Description, it.Stock, it.Slug, it.FarmLocation, it.CarbonFootprint).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it       Item
		category string
		label    string
	)
	err := row.Scan(&it.ID, &it.Name, &category, &it.Price, &label, &it.ImageURL, &it.Description,
		&it.Stock, &it.Slug, &it.FarmLocation, &it.CarbonFootprint)
	if err != nil {
		return Item{}, err
	}
	it.Category = Category(category)
	it.Label = Label(label)
	return it, nil
}
