// Package enrich attaches address, elevation and route-to-home details to
// classified fixes via the Google Maps APIs. Every lookup is best-effort:
// failures are logged and the affected fields keep their defaults.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"placewatch/presence-server/internal/config"
	"placewatch/presence-server/internal/model"
	"placewatch/presence-server/internal/observability"
)

// ElevationUnavailable marks an elevation response that carried no result,
// as opposed to a skipped or failed lookup which leaves the default 0.
const ElevationUnavailable = -1

// API keeps only the Google Maps client calls the enricher performs so that
// tests can substitute a stub.
type API interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	Elevation(ctx context.Context, r *maps.ElevationRequest) ([]maps.ElevationResult, error)
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// API keys shorter than this cannot be valid Google credentials; treat the
// configuration as disabled rather than burning requests.
const minAPIKeyLength = 10

// Enricher performs the optional mapping-provider lookups.
type Enricher struct {
	api      API
	logger   *slog.Logger
	language string

	homeLatitude  float64
	homeLongitude float64
}

// New constructs an enricher from the geocoding configuration. When
// enrichment is disabled, or the configured key is too short to be a
// plausible credential, the returned enricher performs no network calls.
func New(cfg config.Geocoding, homeLat, homeLon float64, logger *slog.Logger) (*Enricher, error) {
	e := &Enricher{
		logger:        logger,
		language:      cfg.Language,
		homeLatitude:  homeLat,
		homeLongitude: homeLon,
	}

	if !cfg.Enabled || len(cfg.APIKey) < minAPIKeyLength {
		logger.Debug("geocoding disabled or API key implausible, enrichment off")
		return e, nil
	}

	client, err := maps.NewClient(
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}

	e.api = client
	return e, nil
}

// NewWithAPI builds an enricher around an existing API implementation.
func NewWithAPI(api API, language string, homeLat, homeLon float64, logger *slog.Logger) *Enricher {
	return &Enricher{
		api:           api,
		logger:        logger,
		language:      language,
		homeLatitude:  homeLat,
		homeLongitude: homeLon,
	}
}

// Enabled reports whether lookups will actually be performed.
func (e *Enricher) Enabled() bool {
	return e.api != nil
}

// Enrich populates the address, elevation and route fields of the fix.
// Each step is independent; a failing step leaves its fields at their
// defaults and the remaining steps still run.
func (e *Enricher) Enrich(ctx context.Context, fix *model.Fix) {
	if e.api == nil {
		return
	}

	e.lookupAddress(ctx, fix)
	e.lookupElevation(ctx, fix)
	e.lookupRoute(ctx, fix)
}

func (e *Enricher) lookupAddress(ctx context.Context, fix *model.Fix) {
	results, err := e.api.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: fix.Latitude, Lng: fix.Longitude},
		Language: e.language,
	})
	if err != nil {
		e.logger.Error("reverse geocode failed", "error", err)
		observability.RecordEnrichmentFailure("address")
		return
	}
	if len(results) == 0 {
		return
	}

	fix.Address = results[0].FormattedAddress
	e.logger.Debug("retrieved address", "address", fix.Address)
}

func (e *Enricher) lookupElevation(ctx context.Context, fix *model.Fix) {
	results, err := e.api.Elevation(ctx, &maps.ElevationRequest{
		Locations: []maps.LatLng{{Lat: fix.Latitude, Lng: fix.Longitude}},
	})
	if err != nil {
		e.logger.Error("elevation lookup failed", "error", err)
		observability.RecordEnrichmentFailure("elevation")
		return
	}
	if len(results) == 0 {
		fix.Elevation = ElevationUnavailable
		return
	}

	fix.Elevation = math.Round(results[0].Elevation*10) / 10
	e.logger.Debug("retrieved elevation", "elevation", fix.Elevation)
}

func (e *Enricher) lookupRoute(ctx context.Context, fix *model.Fix) {
	resp, err := e.api.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:       []string{fmt.Sprintf("%f,%f", fix.Latitude, fix.Longitude)},
		Destinations:  []string{fmt.Sprintf("%f,%f", e.homeLatitude, e.homeLongitude)},
		Mode:          maps.TravelModeDriving,
		Language:      e.language,
		DepartureTime: "now",
		TrafficModel:  maps.TrafficModelBestGuess,
	})
	if err != nil {
		e.logger.Error("route lookup failed", "error", err)
		observability.RecordEnrichmentFailure("route")
		return
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return
	}

	element := resp.Rows[0].Elements[0]
	if element.Status != "OK" {
		e.logger.Debug("route element not usable", "status", element.Status)
		return
	}

	fix.RouteDistance = element.Distance.HumanReadable
	fix.RouteDuration = formatDuration(element.Duration)
	fix.RouteDurationWithTraffic = formatDuration(element.DurationInTraffic)
	e.logger.Debug("retrieved route details",
		"routeDistance", fix.RouteDistance,
		"routeDuration", fix.RouteDuration,
		"routeDurationWithTraffic", fix.RouteDurationWithTraffic)
}

// formatDuration renders a duration the way the provider's text fields do:
// "1 min", "34 mins", "1 hour 10 mins".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}

	mins := int(math.Round(d.Minutes()))
	if mins < 1 {
		mins = 1
	}

	hours := mins / 60
	mins = mins % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d %s", mins, plural(mins, "min"))
	case mins == 0:
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	default:
		return fmt.Sprintf("%d %s %d %s", hours, plural(hours, "hour"), mins, plural(mins, "min"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
