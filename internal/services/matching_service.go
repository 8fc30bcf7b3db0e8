package services

import (
	"math"
	"sort"
	"strings"

	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
)

// DistanceUnknown marks entries without coordinates. They are ranked last,
// never dropped, so a worker without GPS is still visible.
const DistanceUnknown = -1

const earthRadiusKm = 6371

type RankedOrder struct {
	models.Order
	DistanceKm float64 `json:"distance_km"`
}

type RankedWorker struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Bio        string            `json:"bio"`
	Skills     models.StringList `json:"skills"`
	DistanceKm float64           `json:"distance_km"`
	Rating     float64           `json:"rating"`
}

type MatchingService interface {
	// RankOrders returns open orders matching the worker's skills, nearest
	// first. With a nil position the list comes back unranked; that is not
	// an error, just a degraded view.
	RankOrders(position *models.Coord, skills []string, radiusKm float64) ([]RankedOrder, error)

	// RankWorkers returns available workers nearest to the contractor.
	RankWorkers(position *models.Coord, radiusKm float64, excludeID uuid.UUID) ([]RankedWorker, error)
}

type matchingService struct {
	orderRepo  repository.OrderRepository
	userRepo   repository.UserRepository
	reviewRepo repository.ReviewRepository
}

func NewMatchingService(orderRepo repository.OrderRepository, userRepo repository.UserRepository, reviewRepo repository.ReviewRepository) MatchingService {
	return &matchingService{orderRepo: orderRepo, userRepo: userRepo, reviewRepo: reviewRepo}
}

// Haversine returns the great-circle distance between two coordinates in km.
func Haversine(a, b models.Coord) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func matchesSkills(cargoType string, skills []string) bool {
	if len(skills) == 0 {
		return true
	}
	for _, s := range skills {
		if strings.EqualFold(s, cargoType) {
			return true
		}
	}
	return false
}

func (s *matchingService) RankOrders(position *models.Coord, skills []string, radiusKm float64) ([]RankedOrder, error) {
	orders, err := s.orderRepo.ListOpen()
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedOrder, 0, len(orders))
	for _, order := range orders {
		if !matchesSkills(order.CargoType, skills) {
			continue
		}
		dist := DistanceUnknown + 0.0
		if position != nil {
			if pos := order.Position(); pos != nil {
				dist = Haversine(*position, *pos)
			}
		}
		if radiusKm > 0 && dist != DistanceUnknown && dist > radiusKm {
			continue
		}
		ranked = append(ranked, RankedOrder{Order: order, DistanceKm: dist})
	}

	if position != nil {
		sortByDistance(ranked, func(r RankedOrder) float64 { return r.DistanceKm })
	}
	return ranked, nil
}

func (s *matchingService) RankWorkers(position *models.Coord, radiusKm float64, excludeID uuid.UUID) ([]RankedWorker, error) {
	workers, err := s.userRepo.GetAvailableWorkers(excludeID)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedWorker, 0, len(workers))
	for _, worker := range workers {
		dist := DistanceUnknown + 0.0
		if position != nil {
			if pos := worker.Availability.Position(); pos != nil {
				dist = Haversine(*position, *pos)
			}
		}
		if radiusKm > 0 && dist != DistanceUnknown && dist > radiusKm {
			continue
		}
		rating := 5.0
		if s.reviewRepo != nil {
			if avg, err := s.reviewRepo.AverageStars(worker.ID); err == nil {
				rating = avg
			}
		}
		ranked = append(ranked, RankedWorker{
			ID:         worker.ID,
			Name:       worker.Name,
			Bio:        worker.Bio,
			Skills:     worker.Skills,
			DistanceKm: dist,
			Rating:     rating,
		})
	}

	if position != nil {
		sortByDistance(ranked, func(r RankedWorker) float64 { return r.DistanceKm })
	}
	return ranked, nil
}

// sortByDistance sorts ascending, with unknown distances pushed to the end.
func sortByDistance[T any](items []T, dist func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := dist(items[i]), dist(items[j])
		if di == DistanceUnknown {
			return false
		}
		if dj == DistanceUnknown {
			return true
		}
		return di < dj
	})
}
