package services

import (
	"testing"

	"chapacerto/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordPtr(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

// Sao Paulo reference points, km-scale apart.
var (
	centerSP  = models.Coord{Lat: -23.5505, Lng: -46.6333}
	lapaSP    = models.Coord{Lat: -23.5280, Lng: -46.7050} // ~7.8 km from center
	guarulhos = models.Coord{Lat: -23.4543, Lng: -46.5337} // ~14.5 km from center
)

func TestHaversine(t *testing.T) {
	assert.Zero(t, Haversine(centerSP, centerSP))

	d := Haversine(centerSP, lapaSP)
	assert.InDelta(t, 7.8, d, 1.0)

	// Symmetry.
	assert.InDelta(t, d, Haversine(lapaSP, centerSP), 1e-9)
}

func TestRankOrdersByDistance(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := NewMatchingService(orderRepo, newFakeUserRepo(), newFakeReviewRepo())

	far := &models.Order{ContractorID: uuid.New(), Origin: "Guarulhos", CargoType: models.CargoLoading}
	far.Lat, far.Lng = coordPtr(guarulhos.Lat, guarulhos.Lng)
	near := &models.Order{ContractorID: uuid.New(), Origin: "Lapa", CargoType: models.CargoLoading}
	near.Lat, near.Lng = coordPtr(lapaSP.Lat, lapaSP.Lng)
	noGPS := &models.Order{ContractorID: uuid.New(), Origin: "endereco sem pin", CargoType: models.CargoLoading}
	require.NoError(t, orderRepo.Create(far))
	require.NoError(t, orderRepo.Create(near))
	require.NoError(t, orderRepo.Create(noGPS))

	ranked, err := svc.RankOrders(&centerSP, nil, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, near.ID, ranked[0].ID)
	assert.Equal(t, far.ID, ranked[1].ID)
	assert.Equal(t, noGPS.ID, ranked[2].ID, "unknown distance sorts last, never dropped")
	assert.Equal(t, float64(DistanceUnknown), ranked[2].DistanceKm)
}

func TestRankOrdersRadiusKeepsUnknown(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := NewMatchingService(orderRepo, newFakeUserRepo(), newFakeReviewRepo())

	far := &models.Order{ContractorID: uuid.New(), Origin: "Guarulhos", CargoType: models.CargoLoading}
	far.Lat, far.Lng = coordPtr(guarulhos.Lat, guarulhos.Lng)
	noGPS := &models.Order{ContractorID: uuid.New(), Origin: "endereco sem pin", CargoType: models.CargoLoading}
	require.NoError(t, orderRepo.Create(far))
	require.NoError(t, orderRepo.Create(noGPS))

	ranked, err := svc.RankOrders(&centerSP, nil, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 1, "radius cuts the far order")
	assert.Equal(t, noGPS.ID, ranked[0].ID, "unknown distance survives the radius filter")
}

func TestRankOrdersSkillFilter(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := NewMatchingService(orderRepo, newFakeUserRepo(), newFakeReviewRepo())

	moving := &models.Order{ContractorID: uuid.New(), Origin: "a", CargoType: models.CargoMoving}
	loading := &models.Order{ContractorID: uuid.New(), Origin: "b", CargoType: models.CargoLoading}
	require.NoError(t, orderRepo.Create(moving))
	require.NoError(t, orderRepo.Create(loading))

	ranked, err := svc.RankOrders(nil, []string{models.CargoMoving}, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, moving.ID, ranked[0].ID)

	all, err := svc.RankOrders(nil, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "no skills means everything")
}

func TestRankOrdersOnlyOpen(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := NewMatchingService(orderRepo, newFakeUserRepo(), newFakeReviewRepo())

	open := &models.Order{ContractorID: uuid.New(), Origin: "a", CargoType: models.CargoLoading}
	require.NoError(t, orderRepo.Create(open))
	taken := &models.Order{ContractorID: uuid.New(), Origin: "b", CargoType: models.CargoLoading, Status: string(models.OrderAccepted)}
	require.NoError(t, orderRepo.Create(taken))

	ranked, err := svc.RankOrders(nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, open.ID, ranked[0].ID)
}

func TestRankWorkers(t *testing.T) {
	userRepo := newFakeUserRepo()
	reviewRepo := newFakeReviewRepo()
	svc := NewMatchingService(newFakeOrderRepo(), userRepo, reviewRepo)

	nearLat, nearLng := coordPtr(lapaSP.Lat, lapaSP.Lng)
	near := &models.User{
		Name: "Seu Jorge", Role: string(models.RoleWorker),
		Availability: models.Availability{IsAvailable: true, LastLat: nearLat, LastLng: nearLng},
	}
	farLat, farLng := coordPtr(guarulhos.Lat, guarulhos.Lng)
	far := &models.User{
		Name: "Carlao", Role: string(models.RoleWorker),
		Availability: models.Availability{IsAvailable: true, LastLat: farLat, LastLng: farLng},
	}
	offline := &models.User{Name: "Sumido", Role: string(models.RoleWorker)}
	require.NoError(t, userRepo.Create(near))
	require.NoError(t, userRepo.Create(far))
	require.NoError(t, userRepo.Create(offline))

	require.NoError(t, reviewRepo.Create(&models.Review{TargetID: near.ID, ReviewerID: uuid.New(), OrderID: uuid.New(), Stars: 4}))

	ranked, err := svc.RankWorkers(&centerSP, 0, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, ranked, 2, "offline workers stay hidden")
	assert.Equal(t, near.ID, ranked[0].ID)
	assert.Equal(t, 4.0, ranked[0].Rating)
	assert.Equal(t, 5.0, ranked[1].Rating, "no reviews defaults to 5")
}
