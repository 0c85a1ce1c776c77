package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/crypto"
	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// APIConfigurationRepository provides access to organization provider credentials.
// API keys are sealed before storage and opened after retrieval.
type APIConfigurationRepository interface {
	// Create stores a new configuration, sealing its API key.
	Create(ctx context.Context, cfg *models.APIConfiguration) error

	// ListActive returns the organization's active configurations in resolution
	// order: the default first, then oldest to newest.
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]*models.APIConfiguration, error)
}

type apiConfigurationRepository struct {
	sealer *crypto.KeySealer
}

// NewAPIConfigurationRepository creates a new API configuration repository.
func NewAPIConfigurationRepository(sealer *crypto.KeySealer) APIConfigurationRepository {
	return &apiConfigurationRepository{sealer: sealer}
}

var _ APIConfigurationRepository = (*apiConfigurationRepository)(nil)

func (r *apiConfigurationRepository) Create(ctx context.Context, cfg *models.APIConfiguration) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if r.sealer == nil {
		return apperrors.ErrCredentialsKey
	}

	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	sealed, err := r.sealer.Seal(cfg.OrganizationID, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}

	query := `
		INSERT INTO api_configurations (id, organization_id, provider, api_key_encrypted, model,
			is_active, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = scope.Conn.Exec(ctx, query,
		cfg.ID, cfg.OrganizationID, cfg.Provider, sealed, cfg.Model,
		cfg.IsActive, cfg.IsDefault, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api configuration: %w", err)
	}
	return nil
}

func (r *apiConfigurationRepository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]*models.APIConfiguration, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, organization_id, provider, api_key_encrypted, model, is_active, is_default,
		       created_at, updated_at
		FROM api_configurations
		WHERE organization_id = $1 AND is_active
		ORDER BY is_default DESC, created_at ASC, id`

	rows, err := scope.Conn.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api configurations: %w", err)
	}
	defer rows.Close()

	type sealedConfig struct {
		cfg    *models.APIConfiguration
		sealed string
	}
	var found []sealedConfig
	for rows.Next() {
		var c models.APIConfiguration
		var sealed string
		if err := rows.Scan(
			&c.ID, &c.OrganizationID, &c.Provider, &sealed, &c.Model,
			&c.IsActive, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api configuration: %w", err)
		}
		found = append(found, sealedConfig{cfg: &c, sealed: sealed})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api configurations: %w", err)
	}

	configs := make([]*models.APIConfiguration, 0, len(found))
	for _, f := range found {
		if f.sealed != "" {
			if r.sealer == nil {
				return nil, apperrors.ErrCredentialsKey
			}
			key, err := r.sealer.Open(f.cfg.OrganizationID, f.sealed)
			if err != nil {
				return nil, fmt.Errorf("open api key for configuration %s: %w", f.cfg.ID, err)
			}
			f.cfg.APIKey = key
		}
		configs = append(configs, f.cfg)
	}
	return configs, nil
}
