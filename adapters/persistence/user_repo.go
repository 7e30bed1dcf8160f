package persistence

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

type postgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(db *pgxpool.Pool) user.Repository {
	return &postgresUserRepo{db: db}
}

var psqlUser = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{"id", "name", "email", "password_hash", "profile_photo", "created_at", "updated_at"}

func scanUser(row pgx.Row, identifier string) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePhoto,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("user", identifier)
		}
		return nil, apperror.NewInternal("failed to scan user row", err)
	}
	return u, nil
}

func (r *postgresUserRepo) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = user.NormalizeEmail(u.Email)

	query, args, err := psqlUser.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Email, u.PasswordHash, u.ProfilePhoto, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build insert user query", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("user", "email", u.Email)
		}
		return apperror.NewInternal("failed to save user", err)
	}
	return nil
}

func (r *postgresUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query, args, err := psqlUser.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": user.NormalizeEmail(email)}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find user query", err)
	}
	return scanUser(r.db.QueryRow(ctx, query, args...), email)
}

func (r *postgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query, args, err := psqlUser.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find user query", err)
	}
	return scanUser(r.db.QueryRow(ctx, query, args...), id.String())
}

func (r *postgresUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, changes user.ProfileChanges) (*user.User, error) {
	if changes.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	b := psqlUser.Update("users").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, email, password_hash, profile_photo, created_at, updated_at")
	if changes.Name != nil {
		b = b.Set("name", *changes.Name)
	}
	if changes.ProfilePhoto != nil {
		b = b.Set("profile_photo", *changes.ProfilePhoto)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build update user query", err)
	}
	return scanUser(r.db.QueryRow(ctx, query, args...), id.String())
}

func (r *postgresUserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, apperror.NewInternal("failed to count users", err)
	}
	return n, nil
}
