package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frahmantamala/equipment-tracker/internal"
	userDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/user"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, password_hash, role, phone, id_number, company, has_drivers_license, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := r.db.Rebind(`INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	row := user.ToDataModel(u)
	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.Name, row.Email, row.PasswordHash, row.Role,
		row.Phone, row.IDNumber, row.Company, row.HasDriversLicense,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return internal.NewPersistenceError("failed to create user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var rows []*userDatamodel.User
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY name ASC`); err != nil {
		return nil, internal.NewPersistenceError("failed to list users", err)
	}
	return user.FromDataModelSlice(rows), nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := r.db.Rebind(`UPDATE users SET name = ?, email = ?, role = ?, phone = ?, id_number = ?,
company = ?, has_drivers_license = ?, updated_at = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		u.Name, u.Email, string(u.Role), u.Phone, u.IDNumber,
		u.Company, u.HasDriversLicense, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return internal.NewPersistenceError("failed to update user", err)
	}
	return expectOneRow(res)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return internal.NewPersistenceError("failed to delete user", err)
	}
	return expectOneRow(res)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewPersistenceError("failed to load user", err)
	}
	return user.FromDataModel(&row), nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return internal.NewPersistenceError("failed to read affected rows", err)
	}
	if n == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
