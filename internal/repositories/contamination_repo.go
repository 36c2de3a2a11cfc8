package repositories

import (
	"context"

	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContaminationRepository interface {
	Create(ctx context.Context, incident *models.ContaminationIncident) error
	ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.ContaminationIncident, error)
}

type contaminationRepo struct {
	db *pgxpool.Pool
}

func NewContaminationRepository(db *pgxpool.Pool) ContaminationRepository {
	return &contaminationRepo{db: db}
}

func (r *contaminationRepo) Create(ctx context.Context, incident *models.ContaminationIncident) error {
	query := `
		INSERT INTO contamination_incidents (id, instance_id, kind, severity, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, incident.ID, incident.InstanceID, incident.Kind, incident.Severity, incident.Description, incident.OccurredAt)
	return err
}

func (r *contaminationRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.ContaminationIncident, error) {
	query := `
		SELECT id, instance_id, kind, severity, description, occurred_at
		FROM contamination_incidents
		WHERE instance_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []*models.ContaminationIncident
	for rows.Next() {
		incident := &models.ContaminationIncident{}
		if err := rows.Scan(&incident.ID, &incident.InstanceID, &incident.Kind, &incident.Severity, &incident.Description, &incident.OccurredAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}
	return incidents, rows.Err()
}
