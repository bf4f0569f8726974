package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderCols = []string{"id", "user_id", "slug", "tracking_no", "is_ordered", "status", "created_at", "ordered_at",
		"delivery_date", "delivery_timeslot", "discount_amount", "final_price"}
	lineCols = []string{"order_id", "item_id", "name", "slug", "category", "unit_price", "quantity"}

	fixedNow = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
)

func newTestRepo(t *testing.T) (*repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repo{db: db, now: func() time.Time { return fixedNow }}, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestRepositoryGetOrCreateCart(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectExec(q(`INSERT INTO orders (id, user_id, slug, tracking_no, is_ordered, status, created_at)`)).
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "Pending", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 AND NOT is_ordered`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("order-1", "user-1", "a1b2c3", "AAA-BBB-CCC", false, "Pending", fixedNow, nil, nil, nil, "0.00", nil))
	mock.ExpectQuery(q(`FROM order_items oi`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow("order-1", int64(1), "Apples", "apples", "fruits", "5.00", 3).
			AddRow("order-1", int64(2), "Pears", "pears", "fruits", "3.50", 2))

	o, err := r.GetOrCreateCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, o)

	assert.Equal(t, "order-1", o.ID)
	assert.False(t, o.IsOrdered)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.OrderedAt)
	assert.False(t, o.FinalPrice.Valid)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "apples", o.Lines[0].Slug)
	assert.True(t, decimal.RequireFromString("5").Equal(o.Lines[0].UnitPrice))
	assert.Equal(t, 2, o.Lines[1].Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryOpenCart_None(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 AND NOT is_ordered`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(orderCols))

	o, err := r.OpenCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, o)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddItem(t *testing.T) {
	const lock = `SELECT is_ordered FROM orders WHERE id = $1 FOR UPDATE`
	const upsert = `INSERT INTO order_items (order_id, item_id, quantity)`

	t.Run("upserts line under the order lock", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lock)).WithArgs("order-1").WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(false))
		mock.ExpectExec(q(upsert)).WithArgs("order-1", int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, r.AddItem(context.Background(), "order-1", 4))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finalized order untouched", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lock)).WithArgs("order-1").WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(true))
		mock.ExpectRollback()

		require.ErrorIs(t, r.AddItem(context.Background(), "order-1", 4), ErrAlreadyFinalized)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted cart", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lock)).WithArgs("order-1").WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}))
		mock.ExpectRollback()

		err := r.AddItem(context.Background(), "order-1", 4)
		require.ErrorIs(t, err, ErrCartGone)
		assert.False(t, errors.Is(err, ErrAlreadyFinalized))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

const lockCart = `SELECT id FROM orders WHERE user_id = $1 AND NOT is_ordered FOR UPDATE`

func TestRepositoryRemoveItem(t *testing.T) {
	const del = `DELETE FROM order_items WHERE order_id = $1 AND item_id = $2`

	t.Run("removes line and empty cart", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectExec(q(del)).WithArgs("order-1", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`DELETE FROM orders`)).WithArgs("order-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, r.RemoveItem(context.Background(), "user-1", 2))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("item not in cart", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectExec(q(del)).WithArgs("order-1", int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		require.ErrorIs(t, r.RemoveItem(context.Background(), "user-1", 2), ErrNotInCart)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no open cart", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		require.ErrorIs(t, r.RemoveItem(context.Background(), "user-1", 2), ErrNotInCart)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryDecrementItem(t *testing.T) {
	const update = `UPDATE order_items SET quantity = quantity - 1`
	const del = `DELETE FROM order_items WHERE order_id = $1 AND item_id = $2`

	t.Run("decrements quantity", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectExec(q(update)).WithArgs("order-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, r.DecrementItem(context.Background(), "user-1", 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("last unit deletes line and empty cart", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectExec(q(update)).WithArgs("order-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q(del)).WithArgs("order-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`DELETE FROM orders`)).WithArgs("order-1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, r.DecrementItem(context.Background(), "user-1", 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing line", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockCart)).WithArgs("user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectExec(q(update)).WithArgs("order-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q(del)).WithArgs("order-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		require.ErrorIs(t, r.DecrementItem(context.Background(), "user-1", 3), ErrNotInCart)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func finalizeParams() FinalizeParams {
	return FinalizeParams{
		OrderID:          "order-1",
		UserID:           "user-1",
		Address:          Address{Address1: "1 Main St", Country: "CA", State: "ON", ZipCode: "M5V2T6"},
		Payment:          Payment{Type: PaymentCredit, NameOnCard: "J Doe", CardLast4: "4242", Expiration: "12/27"},
		DeliveryDate:     fixedNow.Add(48 * time.Hour),
		DeliveryTimeslot: TimeslotMorning,
		DiscountAmount:   decimal.RequireFromString("3.00"),
		FinalPrice:       decimal.RequireFromString("21.47"),
		OrderedAt:        fixedNow,
		Lines: []Line{
			{ProductID: 1, UnitPrice: decimal.RequireFromString("5.00"), Quantity: 3},
			{ProductID: 2, UnitPrice: decimal.RequireFromString("3.50"), Quantity: 2},
		},
	}
}

const (
	lockOrder     = `SELECT is_ordered FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`
	selectStored  = `SELECT item_id, quantity FROM order_items WHERE order_id = $1`
	freezePrices  = `UPDATE order_items oi SET unit_price = v.price`
	finalizeOrder = `UPDATE orders`
)

func storedLines(pairs ...int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"item_id", "quantity"})
	for i := 0; i+1 < len(pairs); i += 2 {
		rows.AddRow(int64(pairs[i]), pairs[i+1])
	}
	return rows
}

func TestRepositoryFinalize(t *testing.T) {
	r, mock := newTestRepo(t)
	p := finalizeParams()

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockOrder)).WithArgs("order-1", "user-1").WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(false))
	mock.ExpectQuery(q(selectStored)).WithArgs("order-1").WillReturnRows(storedLines(2, 2, 1, 3))
	mock.ExpectQuery(q(`INSERT INTO addresses`)).
		WithArgs("user-1", "1 Main St", "", "CA", "ON", "M5V2T6", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q(`INSERT INTO payments`)).
		WithArgs("user-1", "credit", "J Doe", "4242", "12/27").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(q(freezePrices)).
		WithArgs("order-1", pq.Array([]int64{1, 2}), pq.Array([]string{"5", "3.5"})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(finalizeOrder)).
		WithArgs("order-1", "user-1", "Pending", fixedNow, p.DeliveryDate, "8 AM - 12 PM", "3", "21.47", int64(7), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Finalize(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFinalize_AlreadyFinalized(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockOrder)).WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(true))
	mock.ExpectRollback()

	require.ErrorIs(t, r.Finalize(context.Background(), finalizeParams()), ErrAlreadyFinalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFinalize_CartChanged(t *testing.T) {
	cases := map[string]*sqlmock.Rows{
		"line added":       storedLines(1, 3, 2, 2, 5, 1),
		"quantity changed": storedLines(1, 4, 2, 2),
		"line removed":     storedLines(1, 3),
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			r, mock := newTestRepo(t)
			mock.ExpectBegin()
			mock.ExpectQuery(q(lockOrder)).WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(false))
			mock.ExpectQuery(q(selectStored)).WithArgs("order-1").WillReturnRows(rows)
			mock.ExpectRollback()

			require.ErrorIs(t, r.Finalize(context.Background(), finalizeParams()), ErrCartChanged)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("cart deleted", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockOrder)).WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}))
		mock.ExpectRollback()

		require.ErrorIs(t, r.Finalize(context.Background(), finalizeParams()), ErrCartChanged)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryFinalize_PaymentInsertError(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockOrder)).WillReturnRows(sqlmock.NewRows([]string{"is_ordered"}).AddRow(false))
	mock.ExpectQuery(q(selectStored)).WillReturnRows(storedLines(1, 3, 2, 2))
	mock.ExpectQuery(q(`INSERT INTO addresses`)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q(`INSERT INTO payments`)).WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := r.Finalize(context.Background(), finalizeParams())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyFinalized))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryLoadLines_FrozenPriceWins(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectQuery(q(`COALESCE(oi.unit_price, i.price)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow("order-1", int64(1), "Apples", "apples", "fruits", "5.00", 3))

	lines, err := r.loadLines(context.Background(), []string{"order-1"})
	require.NoError(t, err)
	require.Len(t, lines["order-1"], 1)
	assert.Equal(t, "5.00", lines["order-1"][0].UnitPrice.StringFixed(2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSameLines(t *testing.T) {
	lines := []Line{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 2}}

	assert.True(t, sameLines(map[int64]int{1: 3, 2: 2}, lines))
	assert.False(t, sameLines(map[int64]int{1: 3}, lines))
	assert.False(t, sameLines(map[int64]int{1: 3, 2: 1}, lines))
	assert.False(t, sameLines(map[int64]int{1: 3, 3: 2}, lines))
	assert.True(t, sameLines(map[int64]int{}, nil))
}

func TestRepositoryHistory(t *testing.T) {
	r, mock := newTestRepo(t)
	older := fixedNow.Add(-72 * time.Hour)
	delivery := fixedNow.Add(24 * time.Hour)

	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 AND is_ordered`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("order-2", "user-1", "ffeedd", "QQQ-WWW-EEE", true, "Pending", fixedNow, fixedNow, delivery, "4 PM - 8 PM", "0.00", "7.91").
			AddRow("order-1", "user-1", "a1b2c3", "AAA-BBB-CCC", true, "Completed", older, older, older, "8 AM - 12 PM", "3.00", "21.47"))
	mock.ExpectQuery(q(`FROM order_items oi`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow("order-1", int64(1), "Apples", "apples", "fruits", "5.00", 3).
			AddRow("order-2", int64(2), "Pears", "pears", "fruits", "3.50", 2))

	orders, err := r.History(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "order-2", orders[0].ID)
	require.NotNil(t, orders[0].OrderedAt)
	assert.Equal(t, TimeslotEvening, orders[0].DeliveryTimeslot)
	assert.True(t, orders[0].FinalPrice.Valid)
	assert.Equal(t, "7.91", orders[0].FinalPrice.Decimal.StringFixed(2))
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, "pears", orders[0].Lines[0].Slug)
	assert.Equal(t, StatusCompleted, orders[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryHistory_Empty(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 AND is_ordered`)).
		WithArgs("user-empty").
		WillReturnRows(sqlmock.NewRows(orderCols))

	orders, err := r.History(context.Background(), "user-empty")
	require.NoError(t, err)
	require.Empty(t, orders)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetBySlug_NotFound(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 AND slug = $2 AND is_ordered`)).
		WithArgs("user-1", "zzzzzz").
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := r.GetBySlug(context.Background(), "user-1", "zzzzzz")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryReschedule(t *testing.T) {
	const update = `UPDATE orders SET delivery_date = $3, delivery_timeslot = $4`
	const status = `SELECT status FROM orders WHERE user_id = $1 AND slug = $2 AND is_ordered`
	date := fixedNow.Add(72 * time.Hour)

	t.Run("pending order", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectExec(q(update)).
			WithArgs("user-1", "a1b2c3", date, "12 PM - 4 PM", "Pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, r.Reschedule(context.Background(), "user-1", "a1b2c3", date, TimeslotAfternoon))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shipped order", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectExec(q(update)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q(status)).
			WithArgs("user-1", "a1b2c3").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Out For Shipping"))

		err := r.Reschedule(context.Background(), "user-1", "a1b2c3", date, TimeslotAfternoon)
		require.ErrorIs(t, err, ErrNotReschedulable)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order", func(t *testing.T) {
		r, mock := newTestRepo(t)
		mock.ExpectExec(q(update)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q(status)).WillReturnRows(sqlmock.NewRows([]string{"status"}))

		err := r.Reschedule(context.Background(), "user-1", "nope00", date, TimeslotAfternoon)
		require.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositorySetStatus(t *testing.T) {
	r, mock := newTestRepo(t)

	require.Error(t, r.SetStatus(context.Background(), "a1b2c3", Status("Lost")))

	mock.ExpectExec(q(`UPDATE orders SET status = $2 WHERE slug = $1 AND is_ordered`)).
		WithArgs("a1b2c3", "Out For Shipping").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.SetStatus(context.Background(), "a1b2c3", StatusOutForShipping))

	mock.ExpectExec(q(`UPDATE orders SET status = $2`)).
		WithArgs("missing", "Completed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, r.SetStatus(context.Background(), "missing", StatusCompleted), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSlugAndTrackingNo(t *testing.T) {
	assert.Regexp(t, `^[0-9a-f]{6}$`, newSlug())
	assert.Regexp(t, `^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$`, newTrackingNo())
}

func TestOrderLineItems(t *testing.T) {
	o := &Order{Lines: []Line{
		{ProductID: 1, UnitPrice: decimal.RequireFromString("5.00"), Quantity: 3},
		{ProductID: 2, UnitPrice: decimal.RequireFromString("3.50"), Quantity: 2},
		{ProductID: 1, UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1},
	}}

	items := o.LineItems()
	require.Len(t, items, 3)
	assert.Equal(t, int64(2), items[1].ProductID)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, []int64{1, 2}, o.ProductIDs())
}
