package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/structstore/internal/domain"
	"github.com/helixir/structstore/internal/filter"
)

const selectUsers = `SELECT id, username, email, full_name, active, created_at, updated_at FROM users`

var userRowColumns = []string{"id", "username", "email", "full_name", "active", "created_at", "updated_at"}

func storedUser(id, username, email string) (*domain.User, *time.Time) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Active:    true,
		CreatedAt: &now,
		UpdatedAt: &now,
	}, &now
}

func userRows(users ...*domain.User) *pgxmock.Rows {
	rows := pgxmock.NewRows(userRowColumns)
	for _, u := range users {
		rows.AddRow(u.ID, u.Username, u.Email, u.FullName, u.Active, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestPgRepository_Get(t *testing.T) {
	t.Run("returns record when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(u))

		got, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "domtoretto", got.Username)
		assert.NotNil(t, got.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found error on miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("missing", 1, 0).
			WillReturnRows(userRows())

		_, err = repo.Get(ctx, "missing")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_GetWhere(t *testing.T) {
	t.Run("returns all records without filters", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u1, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		u2, _ := storedUser("u-2", "brian", "busterbrian@fbi.gov")
		mock.ExpectQuery(selectUsers + ` ORDER BY id$`).
			WillReturnRows(userRows(u1, u2))

		got, err := repo.GetWhere(ctx, nil, filter.Page{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies filters and pagination", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u2, _ := storedUser("u-2", "brian", "busterbrian@fbi.gov")
		mock.ExpectQuery(selectUsers+` WHERE active = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs(true, 10, 20).
			WillReturnRows(userRows(u2))

		got, err := repo.GetWhere(ctx,
			[]filter.Filter{filter.MustNew("active", filter.EQ, true)},
			filter.Page{Number: 2, Size: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "brian", got[0].Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("in filter binds sequence as single argument", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u1, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE username = ANY\(\$1\) ORDER BY id$`).
			WithArgs([]string{"domtoretto", "brian"}).
			WillReturnRows(userRows(u1))

		got, err := repo.GetWhere(ctx,
			[]filter.Filter{filter.MustNew("username", filter.IN, []string{"domtoretto", "brian"})},
			filter.Page{})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown filter field without querying", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		_, err = repo.GetWhere(ctx,
			[]filter.Filter{filter.MustNew("nickname", filter.EQ, "dom")},
			filter.Page{})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnknownField))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_GetFirstWhere(t *testing.T) {
	t.Run("returns first match", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u1, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE active = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs(true, 1, 0).
			WillReturnRows(userRows(u1))

		got, err := repo.GetFirstWhere(ctx, []filter.Filter{filter.MustNew("active", filter.EQ, true)})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is nil without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(selectUsers+` WHERE username = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("nobody", 1, 0).
			WillReturnRows(userRows())

		got, err := repo.GetFirstWhere(ctx, []filter.Filter{filter.MustNew("username", filter.EQ, "nobody")})
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_Create(t *testing.T) {
	t.Run("inserts and returns stored row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u := domain.NewUser("domtoretto", "americanmuscle@fastnfurious.com")
		stored, _ := storedUser(u.ID, u.Username, u.Email)

		mock.ExpectQuery(`INSERT INTO users \(id, username, email, full_name, active\) VALUES \(\$1, \$2, \$3, \$4, \$5\) RETURNING`).
			WithArgs(u.ID, u.Username, u.Email, "", true).
			WillReturnRows(userRows(stored))

		got, err := repo.Create(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.NotNil(t, got.CreatedAt, "store-generated timestamps come back")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to already exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u := domain.NewUser("domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(u.ID, u.Username, u.Email, "", true).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err = repo.Create(ctx, u)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_Update(t *testing.T) {
	t.Run("checks existence then writes", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		current, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(current))

		replacement := &domain.User{
			ID:       "u-1",
			Username: "itswinbig",
			Email:    "americanmuscle@fastnfurious.com",
			Active:   true,
		}
		stored, _ := storedUser("u-1", "itswinbig", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(`UPDATE users SET username = \$1, email = \$2, full_name = \$3, active = \$4 WHERE id = \$5 RETURNING`).
			WithArgs("itswinbig", "americanmuscle@fastnfurious.com", "", true, "u-1").
			WillReturnRows(userRows(stored))

		got, err := repo.Update(ctx, replacement)
		require.NoError(t, err)
		assert.Equal(t, "itswinbig", got.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record fails before writing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("missing", 1, 0).
			WillReturnRows(userRows())

		rec := &domain.User{ID: "missing", Username: "ghost", Email: "ghost@nowhere.com"}
		_, err = repo.Update(ctx, rec)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_PartialUpdate(t *testing.T) {
	t.Run("patches allowed field", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		current, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(current))

		stored, _ := storedUser("u-1", "itswinbig", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(`UPDATE users SET username = \$1, email = \$2, full_name = \$3, active = \$4, created_at = \$5, updated_at = \$6 WHERE id = \$7 RETURNING`).
			WithArgs("itswinbig", "americanmuscle@fastnfurious.com", "", true,
				pgxmock.AnyArg(), pgxmock.AnyArg(), "u-1").
			WillReturnRows(userRows(stored))

		got, err := repo.PartialUpdate(ctx, "u-1", map[string]interface{}{"username": "itswinbig"})
		require.NoError(t, err)
		assert.Equal(t, "itswinbig", got.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-patchable field before any query", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		_, err = repo.PartialUpdate(ctx, "u-1", map[string]interface{}{"created_at": "2019-06-01"})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotPatchable))
		assert.NoError(t, mock.ExpectationsWereMet(), "no SQL should have been issued")
	})

	t.Run("revalidation failure aborts the write", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		current, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(current))

		_, err = repo.PartialUpdate(ctx, "u-1", map[string]interface{}{"email": "not-an-email"})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_UpdateWhere(t *testing.T) {
	t.Run("updates matching rows in bulk", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u1, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		u1.Active = false
		u2, _ := storedUser("u-2", "brian", "busterbrian@fbi.gov")
		u2.Active = false

		mock.ExpectQuery(`UPDATE users SET active = \$1 WHERE active = \$2 RETURNING`).
			WithArgs(false, true).
			WillReturnRows(userRows(u1, u2))

		got, err := repo.UpdateWhere(ctx,
			[]filter.Filter{filter.MustNew("active", filter.EQ, true)},
			map[string]interface{}{"active": false})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matching nothing is not an error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(`UPDATE users SET active = \$1 WHERE username = \$2 RETURNING`).
			WithArgs(false, "nobody").
			WillReturnRows(userRows())

		got, err := repo.UpdateWhere(ctx,
			[]filter.Filter{filter.MustNew("username", filter.EQ, "nobody")},
			map[string]interface{}{"active": false})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects store-generated set columns", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		_, err = repo.UpdateWhere(ctx, nil, map[string]interface{}{"updated_at": "2019-06-01"})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects an empty values map before any SQL", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		_, err = repo.UpdateWhere(ctx, nil, map[string]interface{}{})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRepository_Delete(t *testing.T) {
	t.Run("deletes and returns last known value", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(u))
		mock.ExpectQuery(`DELETE FROM users WHERE id = \$1 RETURNING`).
			WithArgs("u-1").
			WillReturnRows(userRows(u))

		got, err := repo.Delete(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "domtoretto", got.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record fails without deleting", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("missing", 1, 0).
			WillReturnRows(userRows())

		_, err = repo.Delete(ctx, "missing")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race surfaces as not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock)
		ctx := context.Background()

		u, _ := storedUser("u-1", "domtoretto", "americanmuscle@fastnfurious.com")
		mock.ExpectQuery(selectUsers+` WHERE id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs("u-1", 1, 0).
			WillReturnRows(userRows(u))
		mock.ExpectQuery(`DELETE FROM users WHERE id = \$1 RETURNING`).
			WithArgs("u-1").
			WillReturnRows(userRows())

		_, err = repo.Delete(ctx, "u-1")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
