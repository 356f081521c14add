// Package maps 封装 Naver Cloud 地图 API：逆地理编码、地址搜索和周边心理健康机构检索。
// 未配置密钥或鉴权失败时返回内置的模拟数据，方便本地开发。
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"yourmind-go/internal/config"
	"yourmind-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

const (
	placeholderClientID     = "your_naver_client_id_here"
	placeholderClientSecret = "your_naver_client_secret_here"

	// DefaultRadius 是周边检索的默认半径（米）
	DefaultRadius = 5000
	maxFacilities = 20
	maxAddresses  = 5
)

var (
	ErrAddressNotFound = errors.New("address not found")
	errUnauthorized    = errors.New("naver api unauthorized")
)

// Address 是逆地理编码的结果。
type Address struct {
	Address string `json:"address"`
	Mock    bool   `json:"mock,omitempty"`
}

// AddressCandidate 是地址搜索的单条候选。
type AddressCandidate struct {
	RoadAddress    string `json:"roadAddress"`
	JibunAddress   string `json:"jibunAddress"`
	DisplayAddress string `json:"displayAddress"`
}

// Coordinates 是 WGS84 经纬度。
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Facility 是一家心理健康机构，Type 为 psychiatrist 或 counselor。
type Facility struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Address     string      `json:"address"`
	RoadAddress string      `json:"roadAddress"`
	Phone       string      `json:"phone"`
	Category    string      `json:"category"`
	Distance    string      `json:"distance"`
	Coordinates Coordinates `json:"coordinates"`
}

// FacilitySearch 是周边检索的结果。
type FacilitySearch struct {
	Facilities     []Facility  `json:"facilities"`
	TotalCount     int         `json:"totalCount"`
	SearchLocation Coordinates `json:"searchLocation"`
	Mock           bool        `json:"mock,omitempty"`
}

// Client 定义了地图服务的接口。
type Client interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error)
	SearchAddresses(ctx context.Context, query string) ([]AddressCandidate, error)
	SearchNearbyFacilities(ctx context.Context, lat, lng float64, radius int) (*FacilitySearch, error)
}

type naverClient struct {
	cfg    config.NaverConfig
	client *http.Client
}

// NewClient 创建 Naver 地图客户端。
func NewClient(cfg config.NaverConfig) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://naveropenapi.apigw.ntruss.com"
	}
	return &naverClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *naverClient) configured() bool {
	id, secret := c.cfg.ClientID, c.cfg.ClientSecret
	return id != "" && secret != "" && id != placeholderClientID && secret != placeholderClientSecret
}

func (c *naverClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	if !c.configured() {
		log.Info("Naver Maps API keys not configured, using mock data")
		return mockAddress(), nil
	}
	q := url.Values{}
	q.Set("coords", fmt.Sprintf("%s,%s", formatCoord(lng), formatCoord(lat)))
	q.Set("orders", "legalcode")
	q.Set("output", "json")

	var resp struct {
		Results []struct {
			Region struct {
				Area1 struct{ Name string } `json:"area1"`
				Area2 struct{ Name string } `json:"area2"`
				Area3 struct{ Name string } `json:"area3"`
			} `json:"region"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/map-reversegeocode/v2/gc", q, &resp); err != nil {
		if errors.Is(err, errUnauthorized) {
			log.Warnf("Naver Maps API authentication failed, using mock data")
			return mockAddress(), nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrAddressNotFound
	}
	r := resp.Results[0].Region
	return &Address{Address: fmt.Sprintf("%s %s %s", r.Area1.Name, r.Area2.Name, r.Area3.Name)}, nil
}

func (c *naverClient) SearchAddresses(ctx context.Context, query string) ([]AddressCandidate, error) {
	if !c.configured() {
		return []AddressCandidate{}, nil
	}
	q := url.Values{}
	q.Set("query", query)

	var resp struct {
		Addresses []struct {
			RoadAddress  string `json:"roadAddress"`
			JibunAddress string `json:"jibunAddress"`
		} `json:"addresses"`
	}
	if err := c.get(ctx, "/map-geocode/v2/geocode", q, &resp); err != nil {
		return nil, err
	}
	out := make([]AddressCandidate, 0, maxAddresses)
	for i, a := range resp.Addresses {
		if i == maxAddresses {
			break
		}
		display := a.RoadAddress
		if display == "" {
			display = a.JibunAddress
		}
		out = append(out, AddressCandidate{RoadAddress: a.RoadAddress, JibunAddress: a.JibunAddress, DisplayAddress: display})
	}
	return out, nil
}

type placeResponse struct {
	Places []struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Address     string     `json:"address"`
		RoadAddress string     `json:"roadAddress"`
		Tel         string     `json:"tel"`
		Category    string     `json:"category"`
		Distance    flexString `json:"distance"`
		X           flexString `json:"x"`
		Y           flexString `json:"y"`
	} `json:"places"`
}

func (c *naverClient) SearchNearbyFacilities(ctx context.Context, lat, lng float64, radius int) (*FacilitySearch, error) {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if !c.configured() {
		log.Info("Naver Maps API keys not configured, using mock data")
		return mockFacilities(lat, lng), nil
	}

	searches := []struct {
		query    string
		category string
		kind     string
	}{
		{"정신과", "HP8", "psychiatrist"},
		{"심리상담", "", "counselor"},
	}
	results := make([][]Facility, len(searches))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range searches {
		i, s := i, s
		g.Go(func() error {
			q := url.Values{}
			q.Set("query", s.query)
			q.Set("coordinate", fmt.Sprintf("%s,%s", formatCoord(lng), formatCoord(lat)))
			q.Set("radius", strconv.Itoa(radius))
			if s.category != "" {
				q.Set("category", s.category)
			}
			q.Set("display", strconv.Itoa(maxFacilities))

			var resp placeResponse
			if err := c.get(gctx, "/map-place/v1/search", q, &resp); err != nil {
				return err
			}
			for _, p := range resp.Places {
				results[i] = append(results[i], Facility{
					ID:          p.ID,
					Name:        p.Name,
					Type:        s.kind,
					Address:     p.Address,
					RoadAddress: p.RoadAddress,
					Phone:       p.Tel,
					Category:    p.Category,
					Distance:    string(p.Distance),
					Coordinates: Coordinates{Lat: parseFloat(string(p.Y)), Lng: parseFloat(string(p.X))},
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, errUnauthorized) {
			log.Warnf("Naver Maps API authentication failed, using mock data")
			return mockFacilities(lat, lng), nil
		}
		return nil, err
	}

	unique := dedupe(append(results[0], results[1]...))
	sort.SliceStable(unique, func(a, b int) bool {
		return parseFloat(unique[a].Distance) < parseFloat(unique[b].Distance)
	})
	total := len(unique)
	if len(unique) > maxFacilities {
		unique = unique[:maxFacilities]
	}
	return &FacilitySearch{
		Facilities:     unique,
		TotalCount:     total,
		SearchLocation: Coordinates{Lat: lat, Lng: lng},
	}, nil
}

func (c *naverClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create naver request: %w", err)
	}
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", c.cfg.ClientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", c.cfg.ClientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call naver %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("naver %s returned %s: %s", path, resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode naver %s: %w", path, err)
	}
	return nil
}

// 按 ID 去重，保留首次出现的机构
func dedupe(in []Facility) []Facility {
	seen := make(map[string]struct{}, len(in))
	out := make([]Facility, 0, len(in))
	for _, f := range in {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// flexString 兼容 API 以字符串或数字返回的字段
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

func mockAddress() *Address {
	return &Address{Address: "서울특별시 강남구 역삼동", Mock: true}
}

func mockFacilities(lat, lng float64) *FacilitySearch {
	facilities := []Facility{
		{
			ID: "mock_1", Name: "강남정신건강의학과", Type: "psychiatrist",
			Address: "서울특별시 강남구 역삼동 123-45", RoadAddress: "서울특별시 강남구 테헤란로 123",
			Phone: "02-1234-5678", Category: "정신건강의학과", Distance: "500",
			Coordinates: Coordinates{Lat: 37.5665, Lng: 126.9780},
		},
		{
			ID: "mock_2", Name: "역삼심리상담센터", Type: "counselor",
			Address: "서울특별시 강남구 역삼동 234-56", RoadAddress: "서울특별시 강남구 강남대로 456",
			Phone: "02-2345-6789", Category: "심리상담", Distance: "800",
			Coordinates: Coordinates{Lat: 37.5670, Lng: 126.9785},
		},
		{
			ID: "mock_3", Name: "테헤란정신과", Type: "psychiatrist",
			Address: "서울특별시 강남구 역삼동 345-67", RoadAddress: "서울특별시 강남구 테헤란로 789",
			Phone: "02-3456-7890", Category: "정신건강의학과", Distance: "1200",
			Coordinates: Coordinates{Lat: 37.5660, Lng: 126.9775},
		},
	}
	return &FacilitySearch{
		Facilities:     facilities,
		TotalCount:     len(facilities),
		SearchLocation: Coordinates{Lat: lat, Lng: lng},
		Mock:           true,
	}
}
