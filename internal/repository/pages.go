package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/sqlerr"
)

const pageColumns = `path, created_at, created_by, modified_at, modified_by, published, metadata, body`

func (s *PostgresStore) GetPage(ctx context.Context, path string) (model.Page, error) {
	var page model.Page

	err := s.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE path = $1`, path).Scan(
		&page.Path,
		&page.CreatedAt,
		&page.CreatedBy,
		&page.ModifiedAt,
		&page.ModifiedBy,
		&page.Published,
		&page.Metadata,
		&page.Body,
	)
	if err != nil {
		return model.Page{}, fmt.Errorf("get page %q: %w", path, sqlerr.HandleError(err))
	}

	if page.Metadata == nil {
		page.Metadata = []string{}
	}
	return page, nil
}

func (s *PostgresStore) UpdatePage(ctx context.Context, page model.Page) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pages
		SET created_at = $2,
			created_by = $3,
			modified_at = $4,
			modified_by = $5,
			published = $6,
			metadata = $7,
			body = $8
		WHERE path = $1`,
		page.Path,
		page.CreatedAt,
		page.CreatedBy,
		page.ModifiedAt,
		page.ModifiedBy,
		page.Published,
		metadataOrEmpty(page.Metadata),
		page.Body,
	)
	if err != nil {
		return fmt.Errorf("update page %q: %w", page.Path, sqlerr.HandleError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update page %q: %w", page.Path, errs.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertPage(ctx context.Context, page model.Page) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pages (`+pageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		page.Path,
		page.CreatedAt,
		page.CreatedBy,
		page.ModifiedAt,
		page.ModifiedBy,
		page.Published,
		metadataOrEmpty(page.Metadata),
		page.Body,
	)
	if err != nil {
		return fmt.Errorf("insert page %q: %w", page.Path, sqlerr.HandleError(err))
	}
	return nil
}

func (s *PostgresStore) DeletePage(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pages WHERE path = $1`, path); err != nil {
		return fmt.Errorf("delete page %q: %w", path, sqlerr.HandleError(err))
	}
	return nil
}

// metadataOrEmpty keeps a nil slice from being written as SQL NULL.
func metadataOrEmpty(metadata []string) []string {
	if metadata == nil {
		return []string{}
	}
	return metadata
}
