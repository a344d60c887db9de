package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRatesPayload(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/rates/couriers", r.URL.Path)
		require.Equal(t, "biteship-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"pricing": []map[string]any{
				{"courier_name": "jne", "courier_service_name": "REG", "price": 12000, "duration": "2-3 days"},
			},
		})
	}))
	defer ts.Close()

	c := NewClient("biteship-key", ts.URL)
	rates, err := c.Rates(context.Background(), &RateRequest{
		DestinationPostalCode: "40111",
		Items: []Item{
			{Quantity: 2, Price: 30000},
			{Quantity: 1, Price: 15000},
		},
	})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, "jne", rates[0].Courier)
	require.Equal(t, float64(12000), rates[0].Price)

	require.Equal(t, "40111", got["destination_postal_code"])
	require.EqualValues(t, 12920, got["origin_postal_code"])
	require.Equal(t, "jne,jnt,sicepat,anteraja,ninja", got["couriers"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	// 3 units at 500g each, declared value is the merchandise total.
	require.EqualValues(t, 1500, item["weight"])
	require.EqualValues(t, 75000, item["value"])
}

func TestRatesDestinationPrecedence(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"pricing": []map[string]any{}})
	}))
	defer ts.Close()
	c := NewClient("k", ts.URL)

	// Area id wins over everything else.
	_, err := c.Rates(context.Background(), &RateRequest{
		DestinationAreaID:     "IDNP6IDNC148",
		DestinationPostalCode: "40111",
		Items:                 []Item{{Quantity: 1, Price: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "IDNP6IDNC148", got["destination_area_id"])
	require.NotContains(t, got, "destination_postal_code")

	// Coordinates are the fallback.
	_, err = c.Rates(context.Background(), &RateRequest{
		DestinationLatitude:  -6.2,
		DestinationLongitude: 106.8,
		Items:                []Item{{Quantity: 1, Price: 1}},
	})
	require.NoError(t, err)
	require.InDelta(t, -6.2, got["destination_latitude"], 1e-9)
	require.InDelta(t, 106.8, got["destination_longitude"], 1e-9)
}

func TestRatesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient("k", ts.URL)
	_, err := c.Rates(context.Background(), &RateRequest{
		DestinationPostalCode: "40111",
		Items:                 []Item{{Quantity: 1, Price: 1}},
	})
	require.Error(t, err)
}

func TestAreas(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/maps/areas", r.URL.Path)
		require.Equal(t, "biteship-key", r.Header.Get("Authorization"))
		q := r.URL.Query()
		require.Equal(t, "ID", q.Get("countries"))
		require.Equal(t, "bandung kota", q.Get("input"))
		require.Equal(t, "single", q.Get("type"))
		json.NewEncoder(w).Encode(map[string]any{
			"areas": []map[string]any{
				{"id": "IDNP6IDNC148", "name": "Bandung, Jawa Barat. 40111"},
			},
		})
	}))
	defer ts.Close()

	c := NewClient("biteship-key", ts.URL)
	areas, err := c.Areas(context.Background(), "bandung kota")
	require.NoError(t, err)
	require.Len(t, areas, 1)
	require.Equal(t, "IDNP6IDNC148", areas[0].ID)
}

func TestAreasUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := NewClient("k", ts.URL)
	_, err := c.Areas(context.Background(), "bandung")
	require.Error(t, err)
}

func TestHasDestination(t *testing.T) {
	require.False(t, (&RateRequest{}).HasDestination())
	require.True(t, (&RateRequest{DestinationAreaID: "x"}).HasDestination())
	require.True(t, (&RateRequest{DestinationPostalCode: "40111"}).HasDestination())
	require.True(t, (&RateRequest{DestinationLatitude: 1, DestinationLongitude: 1}).HasDestination())
	require.False(t, (&RateRequest{DestinationLatitude: 1}).HasDestination())
}
