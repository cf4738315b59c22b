package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/settingsadmin/internal/domain/settings"
)

const settingColumns = `id, data`

func scanSetting(row scannable) (settings.Setting, error) {
	var st settings.Setting
	var data []byte
	if err := row.Scan(&st.ID, &data); err != nil {
		return st, err
	}
	st.Data = json.RawMessage(data)
	return st, nil
}

// ListSettings returns one window of settings, oldest first. Ties on
// created_at are broken by id so pages are stable.
func (s *Store) ListSettings(ctx context.Context, limit, offset int) ([]settings.Setting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settingColumns+` FROM settings ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var result []settings.Setting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return orEmpty(result), nil
}

// CountSettings returns the size of the whole collection.
func (s *Store) CountSettings(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM settings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count settings: %w", err)
	}
	return n, nil
}

// GetSetting returns a single setting by id.
func (s *Store) GetSetting(ctx context.Context, id string) (*settings.Setting, error) {
	st, err := scanSetting(s.pool.QueryRow(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get setting %s", id)
	}
	return &st, nil
}

// CreateSetting inserts a new record with the caller-assigned id.
func (s *Store) CreateSetting(ctx context.Context, in *settings.Setting) (*settings.Setting, error) {
	st, err := scanSetting(s.pool.QueryRow(ctx,
		`INSERT INTO settings (id, data, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 RETURNING `+settingColumns,
		in.ID, []byte(in.Data)))
	if err != nil {
		return nil, fmt.Errorf("create setting %s: %w", in.ID, err)
	}
	return &st, nil
}

// UpdateSetting replaces the whole data document of an existing record.
func (s *Store) UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error) {
	st, err := scanSetting(s.pool.QueryRow(ctx,
		`UPDATE settings SET data = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+settingColumns,
		id, []byte(data)))
	if err != nil {
		return nil, notFoundWrap(err, "update setting %s", id)
	}
	return &st, nil
}

// DeleteSetting removes a record. Unknown ids yield domain.ErrNotFound.
func (s *Store) DeleteSetting(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM settings WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete setting %s", id)
}
