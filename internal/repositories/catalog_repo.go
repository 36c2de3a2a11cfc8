package repositories

import (
	"context"
	"errors"

	"packloop/internal/common"
	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository interface {
	Create(ctx context.Context, entry *models.CatalogEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error)
	GetBySKU(ctx context.Context, sku string) (*models.CatalogEntry, error)
	List(ctx context.Context, limit, offset int) ([]*models.CatalogEntry, error)
}

type catalogRepo struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) Create(ctx context.Context, entry *models.CatalogEntry) error {
	query := `
		INSERT INTO packaging_catalog (id, sku, kind, material, capacity_ml, deposit_amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.SKU, entry.Kind, entry.Material, entry.CapacityML, entry.DepositAmountCents, entry.CreatedAt)
	return err
}

func (r *catalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error) {
	entry := &models.CatalogEntry{}
	query := `
		SELECT id, sku, kind, material, capacity_ml, deposit_amount_cents, created_at
		FROM packaging_catalog
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&entry.ID, &entry.SKU, &entry.Kind, &entry.Material, &entry.CapacityML, &entry.DepositAmountCents, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("catalog entry %s", id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *catalogRepo) GetBySKU(ctx context.Context, sku string) (*models.CatalogEntry, error) {
	entry := &models.CatalogEntry{}
	query := `
		SELECT id, sku, kind, material, capacity_ml, deposit_amount_cents, created_at
		FROM packaging_catalog
		WHERE sku = $1
	`
	err := r.db.QueryRow(ctx, query, sku).Scan(&entry.ID, &entry.SKU, &entry.Kind, &entry.Material, &entry.CapacityML, &entry.DepositAmountCents, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("catalog entry %q", sku)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *catalogRepo) List(ctx context.Context, limit, offset int) ([]*models.CatalogEntry, error) {
	query := `
		SELECT id, sku, kind, material, capacity_ml, deposit_amount_cents, created_at
		FROM packaging_catalog
		ORDER BY sku
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		entry := &models.CatalogEntry{}
		if err := rows.Scan(&entry.ID, &entry.SKU, &entry.Kind, &entry.Material, &entry.CapacityML, &entry.DepositAmountCents, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
