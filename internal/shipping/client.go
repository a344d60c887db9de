package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client calls the courier aggregator's rate API. The quoted price is
// only ever an additive order line; couriers never touch the order
// state machine.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// itemWeightGrams is the per-unit estimate used until the catalog
// carries real weights.
const itemWeightGrams = 500

const originPostalCode = 12920

type Item struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type RateRequest struct {
	DestinationPostalCode string  `json:"destination_postal_code"`
	DestinationAreaID     string  `json:"destination_area_id"`
	DestinationLatitude   float64 `json:"destination_latitude"`
	DestinationLongitude  float64 `json:"destination_longitude"`
	Items                 []Item  `json:"items"`
}

// HasDestination reports whether at least one destination form was
// supplied: area id, postal code, or a coordinate pair.
func (r *RateRequest) HasDestination() bool {
	return r.DestinationAreaID != "" ||
		r.DestinationPostalCode != "" ||
		(r.DestinationLatitude != 0 && r.DestinationLongitude != 0)
}

type Rate struct {
	Courier     string  `json:"courier_name"`
	Service     string  `json:"courier_service_name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Duration    string  `json:"duration"`
}

// Rates quotes couriers for the destination. Destination precedence is
// area id, then postal code, then coordinates.
func (c *Client) Rates(ctx context.Context, req *RateRequest) ([]Rate, error) {
	totalWeight := 0
	totalValue := 0.0
	for _, it := range req.Items {
		totalWeight += it.Quantity * itemWeightGrams
		totalValue += it.Price * float64(it.Quantity)
	}

	payload := map[string]any{
		"origin_postal_code": originPostalCode,
		"couriers":           "jne,jnt,sicepat,anteraja,ninja",
		"items": []map[string]any{
			{
				"name":     "Products",
				"value":    totalValue,
				"weight":   totalWeight,
				"length":   30,
				"width":    20,
				"height":   15,
				"quantity": 1,
			},
		},
	}

	switch {
	case req.DestinationAreaID != "":
		payload["destination_area_id"] = req.DestinationAreaID
	case req.DestinationPostalCode != "":
		payload["destination_postal_code"] = req.DestinationPostalCode
	default:
		payload["destination_latitude"] = req.DestinationLatitude
		payload["destination_longitude"] = req.DestinationLongitude
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/rates/couriers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.APIKey)

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("shipping: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("shipping: unexpected status %s", res.Status)
	}

	var out struct {
		Pricing []Rate `json:"pricing"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("shipping: decode response: %w", err)
	}
	return out.Pricing, nil
}

type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Areas searches the aggregator's area index. The returned ids are what
// RateRequest.DestinationAreaID expects.
func (c *Client) Areas(ctx context.Context, input string) ([]Area, error) {
	q := url.Values{}
	q.Set("countries", "ID")
	q.Set("input", input)
	q.Set("type", "single")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/maps/areas?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", c.APIKey)

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("shipping: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("shipping: unexpected status %s", res.Status)
	}

	var out struct {
		Areas []Area `json:"areas"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("shipping: decode response: %w", err)
	}
	return out.Areas, nil
}
