package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, external_auth_id, COALESCE(email,''), display_name, created_at, updated_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, external_auth_id, email, display_name, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  email=EXCLUDED.email, display_name=EXCLUDED.display_name, updated_at=EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.ExternalAuthID, nullIfEmpty(u.Email), u.DisplayName, u.CreatedAt, u.UpdatedAt)
	return mapError("save user", err)
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.queryOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
}

func (r *userRepo) FindByExternalAuthID(ctx context.Context, tx repository.Tx, externalAuthID string) (*model.User, error) {
	return r.queryOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE external_auth_id=$1;`, externalAuthID)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.queryOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE email=$1;`, model.NormalizeEmail(email))
}

func (r *userRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapError("find user", err)
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError("find user", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.ExternalAuthID, &u.Email, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
