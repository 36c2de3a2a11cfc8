package repositories

import (
	"context"
	"fmt"

	"packloop/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SensorRepository interface {
	Create(ctx context.Context, reading *models.SensorReading) error
	Search(ctx context.Context, filter *models.SensorFilter) ([]*models.SensorReading, error)
}

type sensorRepo struct {
	db *pgxpool.Pool
}

func NewSensorRepository(db *pgxpool.Pool) SensorRepository {
	return &sensorRepo{db: db}
}

func (r *sensorRepo) Create(ctx context.Context, reading *models.SensorReading) error {
	query := `
		INSERT INTO sensor_readings (instance_id, location_id, sensor_type, value, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING reading_id
	`
	return r.db.QueryRow(ctx, query, reading.InstanceID, reading.LocationID, reading.SensorType, reading.Value, reading.RecordedAt).Scan(&reading.ReadingID)
}

func (r *sensorRepo) Search(ctx context.Context, filter *models.SensorFilter) ([]*models.SensorReading, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	queryBase := `
		SELECT reading_id, instance_id, location_id, sensor_type, value, recorded_at
		FROM sensor_readings
		WHERE 1=1
	`
	args := []interface{}{}
	n := 0

	if filter.InstanceID != nil {
		n++
		queryBase += fmt.Sprintf(` AND instance_id = $%d`, n)
		args = append(args, *filter.InstanceID)
	}
	if filter.LocationID != nil {
		n++
		queryBase += fmt.Sprintf(` AND location_id = $%d`, n)
		args = append(args, *filter.LocationID)
	}
	if filter.SensorType != nil {
		n++
		queryBase += fmt.Sprintf(` AND sensor_type = $%d`, n)
		args = append(args, *filter.SensorType)
	}
	if filter.From != nil {
		n++
		queryBase += fmt.Sprintf(` AND recorded_at >= $%d`, n)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		n++
		queryBase += fmt.Sprintf(` AND recorded_at <= $%d`, n)
		args = append(args, *filter.To)
	}

	queryBase += ` ORDER BY recorded_at DESC, reading_id DESC`

	n++
	queryBase += fmt.Sprintf(` LIMIT $%d`, n)
	args = append(args, limit)
	if filter.Offset > 0 {
		n++
		queryBase += fmt.Sprintf(` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*models.SensorReading
	for rows.Next() {
		reading := &models.SensorReading{}
		if err := rows.Scan(&reading.ReadingID, &reading.InstanceID, &reading.LocationID, &reading.SensorType, &reading.Value, &reading.RecordedAt); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}
