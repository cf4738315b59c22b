// Package database defines the database store port (interface).
package database

import (
	"context"
	"encoding/json"

	"github.com/Strob0t/settingsadmin/internal/domain/settings"
)

// Store is the port interface for settings persistence.
// Lookups of unknown IDs return domain.ErrNotFound.
type Store interface {
	// ListSettings returns at most limit records after skipping offset,
	// oldest first.
	ListSettings(ctx context.Context, limit, offset int) ([]settings.Setting, error)
	CountSettings(ctx context.Context) (int, error)
	GetSetting(ctx context.Context, id string) (*settings.Setting, error)
	CreateSetting(ctx context.Context, s *settings.Setting) (*settings.Setting, error)
	UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error)
	DeleteSetting(ctx context.Context, id string) error
}
