package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrNotInCart        = errors.New("item not in cart")
	ErrAlreadyFinalized = errors.New("order already finalized")
	ErrNotReschedulable = errors.New("order can no longer be rescheduled")
	ErrCartChanged      = errors.New("cart changed during checkout")
	ErrCartGone         = errors.New("cart no longer exists")
)

type Repository interface {
	GetOrCreateCart(ctx context.Context, userID string) (*Order, error)
	OpenCart(ctx context.Context, userID string) (*Order, error)
	AddItem(ctx context.Context, orderID string, productID int64) error
	RemoveItem(ctx context.Context, userID string, productID int64) error
	DecrementItem(ctx context.Context, userID string, productID int64) error
	Finalize(ctx context.Context, p FinalizeParams) error
	History(ctx context.Context, userID string) ([]Order, error)
	GetBySlug(ctx context.Context, userID, slug string) (*Order, error)
	Reschedule(ctx context.Context, userID, slug string, date time.Time, slot Timeslot) error
	SetStatus(ctx context.Context, slug string, status Status) error
}

type repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db, now: time.Now}
}

const orderColumns = `id, user_id, slug, tracking_no, is_ordered, status, created_at, ordered_at,
       delivery_date, delivery_timeslot, discount_amount, final_price`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o            Order
		status       string
		orderedAt    sql.NullTime
		deliveryDate sql.NullTime
		timeslot     sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Slug, &o.TrackingNo, &o.IsOrdered, &status, &o.CreatedAt, &orderedAt,
		&deliveryDate, &timeslot, &o.DiscountAmount, &o.FinalPrice)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if orderedAt.Valid {
		t := orderedAt.Time
		o.OrderedAt = &t
	}
	if deliveryDate.Valid {
		t := deliveryDate.Time
		o.DeliveryDate = &t
	}
	o.DeliveryTimeslot = Timeslot(timeslot.String)
	return o, nil
}

// GetOrCreateCart returns the user's open cart, creating it when absent.
// The partial unique index on orders(user_id) WHERE NOT is_ordered keeps
// concurrent callers converging on one cart.
func (r *repo) GetOrCreateCart(ctx context.Context, userID string) (*Order, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, slug, tracking_no, is_ordered, status, created_at)
         VALUES ($1, $2, $3, $4, false, $5, $6)
         ON CONFLICT (user_id) WHERE NOT is_ordered DO NOTHING`,
		uuid.NewString(), userID, newSlug(), newTrackingNo(), string(StatusPending), r.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	o, err := r.OpenCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("open cart for %s vanished after insert", userID)
	}
	return o, nil
}

// OpenCart returns nil when the user has no open cart.
func (r *repo) OpenCart(ctx context.Context, userID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+`
         FROM orders WHERE user_id = $1 AND NOT is_ordered`,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	lines, err := r.loadLines(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

// AddItem adds one unit of productID. The order row is locked so the
// insert cannot interleave with Finalize.
func (r *repo) AddItem(ctx context.Context, orderID string, productID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ordered bool
	err = tx.QueryRowContext(ctx, `SELECT is_ordered FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&ordered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartGone
		}
		return fmt.Errorf("lock order: %w", err)
	}
	if ordered {
		return ErrAlreadyFinalized
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, item_id, quantity)
         VALUES ($1, $2, 1)
         ON CONFLICT (order_id, item_id) DO UPDATE SET quantity = order_items.quantity + 1`,
		orderID, productID,
	)
	if err != nil {
		return fmt.Errorf("upsert order_item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockOpenCart row-locks the user's open cart and returns its id.
func lockOpenCart(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var orderID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE user_id = $1 AND NOT is_ordered FOR UPDATE`,
		userID,
	).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotInCart
		}
		return "", fmt.Errorf("lock cart: %w", err)
	}
	return orderID, nil
}

func deleteIfEmpty(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM orders
         WHERE id = $1 AND NOT is_ordered
           AND NOT EXISTS (SELECT 1 FROM order_items WHERE order_id = $1)`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("delete empty cart: %w", err)
	}
	return nil
}

// RemoveItem drops the whole line and deletes the cart once it is empty.
func (r *repo) RemoveItem(ctx context.Context, userID string, productID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	orderID, err := lockOpenCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE order_id = $1 AND item_id = $2`,
		orderID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete order_item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotInCart
	}

	if err := deleteIfEmpty(ctx, tx, orderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DecrementItem removes one unit, dropping the line when its last unit goes.
func (r *repo) DecrementItem(ctx context.Context, userID string, productID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	orderID, err := lockOpenCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE order_items SET quantity = quantity - 1
         WHERE order_id = $1 AND item_id = $2 AND quantity > 1`,
		orderID, productID,
	)
	if err != nil {
		return fmt.Errorf("decrement order_item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		res, err = tx.ExecContext(ctx,
			`DELETE FROM order_items WHERE order_id = $1 AND item_id = $2`,
			orderID, productID,
		)
		if err != nil {
			return fmt.Errorf("delete order_item: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotInCart
		}
		if err := deleteIfEmpty(ctx, tx, orderID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Finalize stores address and payment and flips the cart to an order in a
// single transaction. The cart row stays locked while the stored lines are
// compared with p.Lines, so the snapshot always covers exactly the lines
// that were priced. Unit prices are frozen on the order lines.
func (r *repo) Finalize(ctx context.Context, p FinalizeParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ordered bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_ordered FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		p.OrderID, p.UserID,
	).Scan(&ordered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartChanged
		}
		return fmt.Errorf("lock order: %w", err)
	}
	if ordered {
		return ErrAlreadyFinalized
	}

	stored, err := lineQuantities(ctx, tx, p.OrderID)
	if err != nil {
		return err
	}
	if !sameLines(stored, p.Lines) {
		return ErrCartChanged
	}

	var addressID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, address1, address2, country, state, zip_code, delivery_instructions)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id`,
		p.UserID, p.Address.Address1, p.Address.Address2, p.Address.Country, p.Address.State, p.Address.ZipCode, p.Address.DeliveryInstructions,
	).Scan(&addressID)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	var paymentID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO payments (user_id, payment_type, name_on_card, card_last4, expiration)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id`,
		p.UserID, string(p.Payment.Type), p.Payment.NameOnCard, p.Payment.CardLast4, p.Payment.Expiration,
	).Scan(&paymentID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	itemIDs := make([]int64, len(p.Lines))
	prices := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		itemIDs[i] = l.ProductID
		prices[i] = l.UnitPrice.String()
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE order_items oi SET unit_price = v.price
         FROM unnest($2::bigint[], $3::numeric[]) AS v(item_id, price)
         WHERE oi.order_id = $1 AND oi.item_id = v.item_id`,
		p.OrderID, pq.Array(itemIDs), pq.Array(prices),
	)
	if err != nil {
		return fmt.Errorf("freeze line prices: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders
         SET is_ordered = true, status = $3, ordered_at = $4, delivery_date = $5, delivery_timeslot = $6,
             discount_amount = $7, final_price = $8, address_id = $9, payment_id = $10
         WHERE id = $1 AND user_id = $2`,
		p.OrderID, p.UserID, string(StatusPending), p.OrderedAt, p.DeliveryDate, string(p.DeliveryTimeslot),
		p.DiscountAmount, p.FinalPrice, addressID, paymentID,
	)
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func lineQuantities(ctx context.Context, tx *sql.Tx, orderID string) (map[int64]int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT item_id, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var (
			itemID   int64
			quantity int
		)
		if err := rows.Scan(&itemID, &quantity); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		out[itemID] = quantity
	}
	return out, rows.Err()
}

func sameLines(stored map[int64]int, lines []Line) bool {
	if len(stored) != len(lines) {
		return false
	}
	for _, l := range lines {
		if q, ok := stored[l.ProductID]; !ok || q != l.Quantity {
			return false
		}
	}
	return true
}

// History lists finalized orders, newest first.
func (r *repo) History(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+`
         FROM orders WHERE user_id = $1 AND is_ordered
         ORDER BY ordered_at DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *repo) GetBySlug(ctx context.Context, userID, slug string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+`
         FROM orders WHERE user_id = $1 AND slug = $2 AND is_ordered`,
		userID, slug,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.loadLines(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

// Reschedule changes the delivery window while the order is still pending.
func (r *repo) Reschedule(ctx context.Context, userID, slug string, date time.Time, slot Timeslot) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET delivery_date = $3, delivery_timeslot = $4
         WHERE user_id = $1 AND slug = $2 AND is_ordered AND status = $5`,
		userID, slug, date, string(slot), string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("reschedule order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE user_id = $1 AND slug = $2 AND is_ordered`,
		userID, slug,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select order status: %w", err)
	}
	return fmt.Errorf("%w: status is %s", ErrNotReschedulable, status)
}

func (r *repo) SetStatus(ctx context.Context, slug string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE slug = $1 AND is_ordered`,
		slug, string(status),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// loadLines reads order lines. Finalized lines carry their frozen unit price;
// open cart lines follow the catalog.
func (r *repo) loadLines(ctx context.Context, orderIDs []string) (map[string][]Line, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.order_id, oi.item_id, i.name, i.slug, i.category, COALESCE(oi.unit_price, i.price), oi.quantity
         FROM order_items oi
         JOIN items i ON i.id = oi.item_id
         WHERE oi.order_id = ANY($1)
         ORDER BY oi.order_id, oi.added_at, oi.item_id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Line, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			l       Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Slug, &l.Category, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		out[orderID] = append(out[orderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
