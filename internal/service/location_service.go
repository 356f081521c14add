package service

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"yourmind-go/pkg/maps"
)

const minQueryLen = 2

// LocationService 提供地址查询和周边心理健康机构检索。
type LocationService interface {
	Address(ctx context.Context, lat, lng float64) (*maps.Address, error)
	SearchAddresses(ctx context.Context, query string) ([]maps.AddressCandidate, error)
	NearbyFacilities(ctx context.Context, lat, lng float64, radius int) (*maps.FacilitySearch, error)
}

type locationService struct {
	client maps.Client
}

// NewLocationService 创建一个新的 LocationService 实例。
func NewLocationService(client maps.Client) LocationService {
	return &locationService{client: client}
}

func (s *locationService) Address(ctx context.Context, lat, lng float64) (*maps.Address, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	return s.client.ReverseGeocode(ctx, lat, lng)
}

func (s *locationService) SearchAddresses(ctx context.Context, query string) ([]maps.AddressCandidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLen {
		return nil, invalidInput("검색어는 최소 2자 이상이어야 합니다.")
	}
	return s.client.SearchAddresses(ctx, query)
}

// NearbyFacilities 检索周边机构，radius 不大于 0 时使用默认半径。
func (s *locationService) NearbyFacilities(ctx context.Context, lat, lng float64, radius int) (*maps.FacilitySearch, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = maps.DefaultRadius
	}
	return s.client.SearchNearbyFacilities(ctx, lat, lng, radius)
}

func validateCoords(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return invalidInput("위도와 경도가 올바르지 않습니다.")
	}
	return nil
}
