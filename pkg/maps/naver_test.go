package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"yourmind-go/internal/config"
)

func newTestClient(url string) Client {
	return NewClient(config.NaverConfig{ClientID: "id", ClientSecret: "secret", BaseURL: url})
}

func TestMockDataWithoutKeys(t *testing.T) {
	c := NewClient(config.NaverConfig{ClientID: placeholderClientID, ClientSecret: placeholderClientSecret})

	addr, err := c.ReverseGeocode(context.Background(), 37.5, 127.0)
	if err != nil || !addr.Mock || addr.Address != "서울특별시 강남구 역삼동" {
		t.Fatalf("ReverseGeocode() = %+v, %v", addr, err)
	}
	res, err := c.SearchNearbyFacilities(context.Background(), 37.5, 127.0, 0)
	if err != nil || !res.Mock || res.TotalCount != 3 {
		t.Fatalf("SearchNearbyFacilities() = %+v, %v", res, err)
	}
	if res.SearchLocation.Lat != 37.5 {
		t.Errorf("search location = %+v", res.SearchLocation)
	}
}

func TestReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-NCP-APIGW-API-KEY-ID") != "id" || r.Header.Get("X-NCP-APIGW-API-KEY") != "secret" {
			t.Errorf("missing api key headers")
		}
		if got := r.URL.Query().Get("coords"); got != "127.0276,37.4979" {
			t.Errorf("coords = %q, want lng,lat", got)
		}
		_, _ = w.Write([]byte(`{"results":[{"region":{"area1":{"name":"서울특별시"},"area2":{"name":"강남구"},"area3":{"name":"역삼동"}}}]}`))
	}))
	defer server.Close()

	addr, err := newTestClient(server.URL).ReverseGeocode(context.Background(), 37.4979, 127.0276)
	if err != nil {
		t.Fatalf("ReverseGeocode() error = %v", err)
	}
	if addr.Address != "서울특별시 강남구 역삼동" || addr.Mock {
		t.Errorf("address = %+v", addr)
	}
}

func TestReverseGeocodeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).ReverseGeocode(context.Background(), 1, 2); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("err = %v, want ErrAddressNotFound", err)
	}
}

func TestUnauthorizedFallsBackToMock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).SearchNearbyFacilities(context.Background(), 37.5, 127.0, 1000)
	if err != nil || !res.Mock {
		t.Fatalf("SearchNearbyFacilities() = %+v, %v", res, err)
	}
}

func TestSearchNearbyFacilitiesMergesAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "정신과":
			if r.URL.Query().Get("category") != "HP8" {
				t.Errorf("psychiatry search should use category HP8")
			}
			_, _ = w.Write([]byte(`{"places":[
				{"id":"a","name":"A의원","distance":"900","x":"127.01","y":"37.51"},
				{"id":"shared","name":"공유의원","distance":300,"x":"127.02","y":"37.52"}]}`))
		case "심리상담":
			_, _ = w.Write([]byte(`{"places":[
				{"id":"shared","name":"공유의원","distance":"300"},
				{"id":"b","name":"B상담센터","distance":"100"}]}`))
		default:
			t.Errorf("unexpected query %q", r.URL.Query().Get("query"))
		}
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).SearchNearbyFacilities(context.Background(), 37.5, 127.0, 0)
	if err != nil {
		t.Fatalf("SearchNearbyFacilities() error = %v", err)
	}
	if res.TotalCount != 3 {
		t.Fatalf("total = %d, want 3 after dedupe", res.TotalCount)
	}
	order := []string{"b", "shared", "a"}
	for i, id := range order {
		if res.Facilities[i].ID != id {
			t.Errorf("facility[%d] = %s, want %s", i, res.Facilities[i].ID, id)
		}
	}
	if res.Facilities[1].Type != "psychiatrist" {
		t.Errorf("shared facility should keep its first type, got %s", res.Facilities[1].Type)
	}
	if res.Facilities[2].Coordinates.Lat != 37.51 {
		t.Errorf("coordinates = %+v", res.Facilities[2].Coordinates)
	}
}

func TestSearchAddressesLimitsToFive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"addresses":[
			{"roadAddress":"r1","jibunAddress":"j1"},{"roadAddress":"","jibunAddress":"j2"},
			{"roadAddress":"r3"},{"roadAddress":"r4"},{"roadAddress":"r5"},{"roadAddress":"r6"}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).SearchAddresses(context.Background(), "역삼")
	if err != nil {
		t.Fatalf("SearchAddresses() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[1].DisplayAddress != "j2" {
		t.Errorf("display address should fall back to jibun, got %q", got[1].DisplayAddress)
	}
}
