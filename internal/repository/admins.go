package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/sqlerr"
	"github.com/google/uuid"
)

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (model.AdminUser, error) {
	var user model.AdminUser

	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, enabled FROM admins WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Enabled)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("get admin %s: %w", id, sqlerr.HandleError(err))
	}
	return user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user model.AdminUser) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE admins SET username = $2, email = $3, enabled = $4 WHERE id = $1`,
		user.ID, user.Username, user.Email, user.Enabled,
	)
	if err != nil {
		return fmt.Errorf("update admin %s: %w", user.ID, sqlerr.HandleError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update admin %s: %w", user.ID, errs.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, user model.AdminUser) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admins (id, username, email, enabled) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Email, user.Enabled,
	)
	if err != nil {
		return fmt.Errorf("insert admin %s: %w", user.ID, sqlerr.HandleError(err))
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete admin %s: %w", id, sqlerr.HandleError(err))
	}
	return nil
}
