package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/settingsadmin/internal/domain"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/port/database"
)

// SettingsService provides CRUD operations for schemaless settings records.
type SettingsService struct {
	store database.Store
	newID func() string
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store database.Store) *SettingsService {
	return &SettingsService{store: store, newID: uuid.NewString}
}

// Create validates the request and stores a new record under a fresh UUID.
func (s *SettingsService) Create(ctx context.Context, req settings.WriteRequest) (*settings.Setting, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	created, err := s.store.CreateSetting(ctx, &settings.Setting{ID: s.newID(), Data: req.Data})
	if err != nil {
		return nil, fmt.Errorf("create setting: %w", err)
	}
	slog.DebugContext(ctx, "setting created", "id", created.ID)
	return created, nil
}

// List returns one page of the collection plus the total count.
func (s *SettingsService) List(ctx context.Context, page, pageSize int) (*settings.Page, error) {
	if err := settings.ValidatePaging(page, pageSize); err != nil {
		return nil, err
	}
	items, err := s.store.ListSettings(ctx, pageSize, settings.Offset(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	total, err := s.store.CountSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("count settings: %w", err)
	}
	if items == nil {
		items = []settings.Setting{}
	}
	return &settings.Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns a single record. Unknown IDs yield domain.ErrNotFound.
func (s *SettingsService) Get(ctx context.Context, id string) (*settings.Setting, error) {
	if id == "" {
		return nil, domain.Validationf("setting id is required")
	}
	return s.store.GetSetting(ctx, id)
}

// Update replaces the record's data. Unknown IDs yield domain.ErrNotFound.
func (s *SettingsService) Update(ctx context.Context, id string, req settings.WriteRequest) (*settings.Setting, error) {
	if id == "" {
		return nil, domain.Validationf("setting id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateSetting(ctx, id, req.Data)
	if err != nil {
		return nil, fmt.Errorf("update setting %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the record. Deleting an unknown ID succeeds.
func (s *SettingsService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteSetting(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete setting %s: %w", id, err)
	}
	return nil
}
