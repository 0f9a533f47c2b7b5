package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
)

type settingRepository struct {
	BaseRepository
}

func NewSettingRepository(base BaseRepository) repository.SettingRepository {
	return &settingRepository{base}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.SiteSetting, error) {
	query := `SELECT id, key, value, updated_at FROM site_settings WHERE key = $1`

	var setting model.SiteSetting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, notFound(err)
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	query := `
		INSERT INTO site_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, []byte(value)); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (r *settingRepository) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM site_settings WHERE key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
