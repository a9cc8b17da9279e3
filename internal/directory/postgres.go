package directory

import (
	"context"
	"database/sql"
)

// PostgresDirectory reads the user and vehicle projections the identity and
// listing services maintain in the shared database.
type PostgresDirectory struct {
	DB *sql.DB
}

func (d *PostgresDirectory) ResolveUser(ctx context.Context, externalAuthID string) (*User, error) {
	return d.queryUser(ctx, `
		SELECT id, display_name, email, role, created_at
		FROM users
		WHERE external_auth_id = $1
	`, externalAuthID)
}

func (d *PostgresDirectory) GetUser(ctx context.Context, id string) (*User, error) {
	return d.queryUser(ctx, `
		SELECT id, display_name, email, role, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (d *PostgresDirectory) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	var v Vehicle
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, title, owner_id
		FROM vehicles
		WHERE id = $1
	`, id).Scan(&v.ID, &v.Title, &v.OwnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (d *PostgresDirectory) queryUser(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := d.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.DisplayName,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
