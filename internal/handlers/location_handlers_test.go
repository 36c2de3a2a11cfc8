package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packloop/internal/models"
)

type stubLocationRepo struct {
	created *models.Location
	loc     *models.Location
	err     error
}

func (s *stubLocationRepo) Create(ctx context.Context, loc *models.Location) error {
	s.created = loc
	return s.err
}
func (s *stubLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.loc, nil
}
func (s *stubLocationRepo) GetByName(ctx context.Context, name string) (*models.Location, error) {
	return s.loc, s.err
}
func (s *stubLocationRepo) List(ctx context.Context, kind *models.LocationKind, limit, offset int) ([]*models.Location, error) {
	return nil, s.err
}
func (s *stubLocationRepo) Update(ctx context.Context, loc *models.Location) error { return s.err }
func (s *stubLocationRepo) Delete(ctx context.Context, id uuid.UUID) error         { return s.err }

type stubRetailerRepo struct {
	created *models.Retailer
	err     error
}

func (s *stubRetailerRepo) Create(ctx context.Context, retailer *models.Retailer) error {
	s.created = retailer
	return s.err
}
func (s *stubRetailerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Retailer, error) {
	return nil, s.err
}
func (s *stubRetailerRepo) GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Retailer, error) {
	return nil, s.err
}
func (s *stubRetailerRepo) List(ctx context.Context, limit, offset int) ([]*models.Retailer, error) {
	return nil, s.err
}
func (s *stubRetailerRepo) Update(ctx context.Context, retailer *models.Retailer) error {
	return s.err
}
func (s *stubRetailerRepo) Delete(ctx context.Context, id uuid.UUID) error { return s.err }

type stubHubRepo struct {
	created *models.Hub
	err     error
}

func (s *stubHubRepo) Create(ctx context.Context, hub *models.Hub) error {
	s.created = hub
	return s.err
}
func (s *stubHubRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Hub, error) {
	return nil, s.err
}
func (s *stubHubRepo) GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Hub, error) {
	return nil, s.err
}
func (s *stubHubRepo) List(ctx context.Context, limit, offset int) ([]*models.Hub, error) {
	return nil, s.err
}
func (s *stubHubRepo) Update(ctx context.Context, hub *models.Hub) error { return s.err }
func (s *stubHubRepo) Delete(ctx context.Context, id uuid.UUID) error    { return s.err }

func TestCreateLocation_StampsCreationTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubLocationRepo{}
	h := NewLocationHandlers(repo, &stubRetailerRepo{}, &stubHubRepo{}, clockwork.NewFakeClockAt(now))

	c, rec := postJSON(t, "/v1/locations", `{"name":"Corner Shop","kind":"retailer"}`)

	require.NoError(t, h.CreateLocation(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, now, repo.created.CreatedAt)
}

func TestCreateLocation_RejectsUnknownKind(t *testing.T) {
	repo := &stubLocationRepo{}
	h := NewLocationHandlers(repo, &stubRetailerRepo{}, &stubHubRepo{}, clockwork.NewFakeClock())

	c, rec := postJSON(t, "/v1/locations", `{"name":"Corner Shop","kind":"warehouse"}`)

	require.NoError(t, h.CreateLocation(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, repo.created)
}

func TestCreateRetailer_StampsCreationTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	locationID := uuid.New()
	locations := &stubLocationRepo{loc: &models.Location{ID: locationID, Name: "Corner Shop", Kind: models.LocationRetailer}}
	retailers := &stubRetailerRepo{}
	h := NewLocationHandlers(locations, retailers, &stubHubRepo{}, clockwork.NewFakeClockAt(now))

	body := `{"location_id":"` + locationID.String() + `","name":"Corner Shop"}`
	c, rec := postJSON(t, "/v1/retailers", body)

	require.NoError(t, h.CreateRetailer(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, retailers.created)
	assert.Equal(t, now, retailers.created.CreatedAt)
}

func TestCreateRetailer_RejectsHubLocation(t *testing.T) {
	locationID := uuid.New()
	locations := &stubLocationRepo{loc: &models.Location{ID: locationID, Name: "North Hub", Kind: models.LocationHub}}
	retailers := &stubRetailerRepo{}
	h := NewLocationHandlers(locations, retailers, &stubHubRepo{}, clockwork.NewFakeClock())

	body := `{"location_id":"` + locationID.String() + `","name":"Corner Shop"}`
	c, rec := postJSON(t, "/v1/retailers", body)

	require.NoError(t, h.CreateRetailer(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, retailers.created)
}

func TestCreateHub_StampsCreationTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	locationID := uuid.New()
	locations := &stubLocationRepo{loc: &models.Location{ID: locationID, Name: "North Hub", Kind: models.LocationHub}}
	hubs := &stubHubRepo{}
	h := NewLocationHandlers(locations, &stubRetailerRepo{}, hubs, clockwork.NewFakeClockAt(now))

	body := `{"location_id":"` + locationID.String() + `","name":"North Hub","capacity":2000}`
	c, rec := postJSON(t, "/v1/hubs", body)

	require.NoError(t, h.CreateHub(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, hubs.created)
	assert.Equal(t, now, hubs.created.CreatedAt)
}
