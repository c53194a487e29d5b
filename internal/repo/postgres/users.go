package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
)

const publicColumns = `id, name, email, role, created_at, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

func (r *UsersRepo) ListAll(ctx context.Context) ([]user.Public, error) {
	var out []user.Public

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+publicColumns+` FROM users`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.Public, 0)

		for rows.Next() {
			var u user.Public

			err = rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.Public, error) {
	var u user.Public

	err := r.observe("users.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+publicColumns+` FROM users WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Public{}, user.ErrNotFound
		}

		return user.Public{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, role, created_at, updated_at
			 FROM users
			 WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.Public, error) {
	var u user.Public

	now := time.Now().UTC()

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $5)
			 RETURNING `+publicColumns,
			name, email, passwordHash, role, now,
		).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.Public{}, user.ErrEmailTaken
		}

		return user.Public{}, err
	}

	return u, nil
}

// Update re-checks existence first so "not found" is reported
// deterministically, then applies only the provided fields plus a
// refreshed updated_at. Concurrent updates to the same row are
// last-write-wins.
func (r *UsersRepo) Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.Public, error) {
	var u user.Public

	err := r.observe("users.update", func() error {
		var exists int64

		err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&exists)

		if err != nil {
			return err
		}

		sets := make([]string, 0, 5)
		args := make([]interface{}, 0, 6)
		pos := 1

		if req.Name != nil {
			sets = append(sets, fmt.Sprintf("name = $%d", pos))
			args = append(args, *req.Name)
			pos++
		}

		if req.Email != nil {
			sets = append(sets, fmt.Sprintf("email = $%d", pos))
			args = append(args, *req.Email)
			pos++
		}

		if req.Role != nil {
			sets = append(sets, fmt.Sprintf("role = $%d", pos))
			args = append(args, *req.Role)
			pos++
		}

		// Password arrives here already hashed by the handler pipeline.
		if req.Password != nil {
			sets = append(sets, fmt.Sprintf("password_hash = $%d", pos))
			args = append(args, *req.Password)
			pos++
		}

		sets = append(sets, fmt.Sprintf("updated_at = $%d", pos))
		args = append(args, time.Now().UTC())
		pos++

		args = append(args, id)

		query := fmt.Sprintf(
			`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(sets, ", "), pos, publicColumns,
		)

		return r.pool.QueryRow(ctx, query, args...).Scan(
			&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Public{}, user.ErrNotFound
		}

		if isUniqueViolation(err) {
			return user.Public{}, user.ErrEmailTaken
		}

		return user.Public{}, err
	}

	return u, nil
}

// Delete checks existence first, like Update, so a missing row is a
// distinct condition and a second delete of the same id reports it.
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	err := r.observe("users.delete", func() error {
		var exists int64

		err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&exists)

		if err != nil {
			return err
		}

		_, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}

		return err
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
