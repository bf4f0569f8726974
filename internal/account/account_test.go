package account

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileCols = []string{"user_id", "first_name", "last_name", "email", "address", "city", "postal_code", "phone", "updated_at"}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func validProfile() Profile {
	return Profile{
		FirstName:  "Sam",
		LastName:   "Grower",
		Email:      "sam@example.com",
		Address:    "12 Orchard Rd",
		City:       "Vancouver",
		PostalCode: "v5k 0a1",
		Phone:      "6045551234",
	}
}

func TestRepoGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM user_profiles WHERE user_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("user-1", "Sam", "Grower", "", "12 Orchard Rd", "Vancouver", "V5K0A1", "", updated))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM user_profiles WHERE user_id = $1`)).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)

	p, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Vancouver", p.City)
	assert.Equal(t, updated, p.UpdatedAt)

	_, err = repo.Get(context.Background(), "user-2")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoInsertConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	p := validProfile()
	p.UserID = "user-1"
	require.ErrorIs(t, repo.Insert(context.Background(), &p), ErrProfileExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE`)).
		WithArgs("user-1", "Sam", "Grower", "sam@example.com", "12 Orchard Rd", "Vancouver", "V5K0A1", "6045551234").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

	p, err := svc.Update(context.Background(), "user-1", validProfile())
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "V5K0A1", p.PostalCode)
	assert.Equal(t, updated, p.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceComplete(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	_, err := svc.Complete(context.Background(), "user-1", validProfile())
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "user-1", validProfile())
	require.ErrorIs(t, err, ErrProfileExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRejectsInvalidProfiles(t *testing.T) {
	cases := map[string]func(p *Profile){
		"missing first name": func(p *Profile) { p.FirstName = "  " },
		"missing city":       func(p *Profile) { p.City = "" },
		"long postal code":   func(p *Profile) { p.PostalCode = "1234567" },
		"short phone":        func(p *Profile) { p.Phone = "604555" },
		"alpha phone":        func(p *Profile) { p.Phone = "604555123x" },
		"bad email":          func(p *Profile) { p.Email = "not-an-email" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			svc := NewService(repo)
			p := validProfile()
			mutate(&p)

			_, err := svc.Update(context.Background(), "user-1", p)
			require.ErrorIs(t, err, ErrInvalidProfile)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestServiceOptionalFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	p := validProfile()
	p.Email = ""
	p.Phone = ""
	_, err := svc.Update(context.Background(), "user-1", p)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateStoreError(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE`)).
		WillReturnError(errors.New("db down"))

	_, err := svc.Update(context.Background(), "user-1", validProfile())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidProfile)
	require.NoError(t, mock.ExpectationsWereMet())
}
