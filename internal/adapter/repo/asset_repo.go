package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository.
type AssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAssetRepository creates an asset repository backed by PostgreSQL.
func NewAssetRepository(sql infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{sql: sql}
}

func (r *AssetRepositoryPG) SaveAll(ctx context.Context, assets []domain.Asset) error {
	for _, asset := range assets {
		id := asset.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := r.sql.Exec(ctx, sqlinline.QInsertAsset,
			id,
			asset.JobID,
			asset.OwnerID,
			asset.Kind,
			asset.StorageKey,
			asset.MimeType,
			asset.SizeBytes,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *AssetRepositoryPG) ListByJobID(ctx context.Context, jobID string) ([]domain.Asset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListAssetsByJob, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.JobID, &a.OwnerID, &a.Kind, &a.StorageKey, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
