package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB creates a pooled connection for testing
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
		if connString == "" {
			connString = "host=localhost port=5432 user=postgres password=postgres dbname=packloop_test sslmode=disable"
		}
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestLocation creates a location of the given kind for testing
func SetupTestLocation(t *testing.T, db *TestDB, kind models.LocationKind) uuid.UUID {
	t.Helper()

	locationID := uuid.New()
	query := `
		INSERT INTO locations (id, name, kind, created_at)
		VALUES ($1, $2, $3, $4)
	`
	name := fmt.Sprintf("Test %s %s", kind, locationID.String()[:8])
	_, err := db.Pool.Exec(context.Background(), query, locationID, name, kind, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test location: %v", err)
	}

	return locationID
}

// SetupTestRetailer creates a retailer wrapping a fresh retailer location
func SetupTestRetailer(t *testing.T, db *TestDB) (retailerID, locationID uuid.UUID) {
	t.Helper()

	locationID = SetupTestLocation(t, db, models.LocationRetailer)
	retailerID = uuid.New()
	query := `
		INSERT INTO retailers (id, location_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := db.Pool.Exec(context.Background(), query, retailerID, locationID, "Test Retailer", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test retailer: %v", err)
	}

	return retailerID, locationID
}

// SetupTestHub creates a hub wrapping a fresh hub location
func SetupTestHub(t *testing.T, db *TestDB) (hubID, locationID uuid.UUID) {
	t.Helper()

	locationID = SetupTestLocation(t, db, models.LocationHub)
	hubID = uuid.New()
	query := `
		INSERT INTO hubs (id, location_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := db.Pool.Exec(context.Background(), query, hubID, locationID, "Test Hub", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test hub: %v", err)
	}

	return hubID, locationID
}

// SetupTestCustomer creates a customer with an empty deposit account
func SetupTestCustomer(t *testing.T, db *TestDB) (customerID, accountID uuid.UUID) {
	t.Helper()

	customerID = uuid.New()
	accountID = uuid.New()
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO customers (id, name, created_at)
		VALUES ($1, $2, $3)
	`, customerID, "Test Customer", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO deposit_accounts (id, customer_id, balance_cents, created_at)
		VALUES ($1, $2, 0, $3)
	`, accountID, customerID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test deposit account: %v", err)
	}

	return customerID, accountID
}

// SetupTestCatalogEntry creates a packaging type for testing
func SetupTestCatalogEntry(t *testing.T, db *TestDB, depositCents int64) *models.CatalogEntry {
	t.Helper()

	entry := &models.CatalogEntry{
		ID:                 uuid.New(),
		SKU:                fmt.Sprintf("SKU-%s", uuid.New().String()[:8]),
		Kind:               models.PackagingCup,
		Material:           "polypropylene",
		DepositAmountCents: depositCents,
		CreatedAt:          time.Now(),
	}
	query := `
		INSERT INTO packaging_catalog (id, sku, kind, material, deposit_amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		entry.ID, entry.SKU, entry.Kind, entry.Material, entry.DepositAmountCents, entry.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test catalog entry: %v", err)
	}

	return entry
}

// SetupTestInstance registers an available instance of the given type
func SetupTestInstance(t *testing.T, db *TestDB, catalogID uuid.UUID) uuid.UUID {
	t.Helper()

	instanceID := uuid.New()
	query := `
		INSERT INTO packaging_instances (id, catalog_id, uid_code, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	uidCode := fmt.Sprintf("UID-%s", instanceID.String()[:8])
	_, err := db.Pool.Exec(context.Background(), query, instanceID, catalogID, uidCode, models.StateAvailable, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test instance: %v", err)
	}

	return instanceID
}
