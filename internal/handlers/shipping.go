package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spraylab/streetshop/internal/geo"
	"github.com/spraylab/streetshop/internal/shipping"
)

type ShippingHandler struct {
	Shipping *shipping.Client
	Geo      *geo.Client
}

// Rates quotes courier prices for a cart. When the caller only has a
// street address, it is geocoded to coordinates before asking the
// courier aggregator.
func (h *ShippingHandler) Rates(c echo.Context) error {
	var req struct {
		AreaID     string          `json:"area_id"`
		PostalCode string          `json:"postal_code"`
		Latitude   float64         `json:"latitude"`
		Longitude  float64         `json:"longitude"`
		Address    string          `json:"address"`
		Items      []shipping.Item `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items are required")
	}

	rr := shipping.RateRequest{
		DestinationAreaID:     req.AreaID,
		DestinationPostalCode: req.PostalCode,
		DestinationLatitude:   req.Latitude,
		DestinationLongitude:  req.Longitude,
		Items:                 req.Items,
	}

	if !rr.HasDestination() {
		if req.Address == "" || h.Geo == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "destination is required")
		}
		point, err := h.Geo.Geocode(c.Request().Context(), req.Address)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "could not resolve address")
		}
		rr.DestinationLatitude = point.Latitude
		rr.DestinationLongitude = point.Longitude
	}

	rates, err := h.Shipping.Rates(c.Request().Context(), &rr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "shipping quote failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"pricing": rates})
}

// Areas backs the address autocomplete: free text in, courier area ids
// out, ready for the rates call.
func (h *ShippingHandler) Areas(c echo.Context) error {
	input := c.QueryParam("input")
	if len(input) < 3 {
		return echo.NewHTTPError(http.StatusBadRequest, "input must be at least 3 characters")
	}

	areas, err := h.Shipping.Areas(c.Request().Context(), input)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "area search failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"areas": areas})
}
