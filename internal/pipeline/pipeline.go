// Package pipeline sequences classification, enrichment and guarded
// persistence for each incoming fix.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"placewatch/presence-server/internal/enrich"
	"placewatch/presence-server/internal/geo"
	"placewatch/presence-server/internal/model"
	"placewatch/presence-server/internal/observability"
	"placewatch/presence-server/internal/roster"
	"placewatch/presence-server/internal/user"
)

// ErrInvalidMessage is the only hard pipeline failure: the inbound message
// is missing required geolocation fields or carries malformed values. It is
// raised before any state mutation.
var ErrInvalidMessage = errors.New("invalid message: latitude, longitude and timestamp are required")

// StateStore is the key/value persistence the pipeline writes user state
// into.
type StateStore interface {
	EnsureState(ctx context.Context, key string) error
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}

// Per-user state slots, namespaced under the storage key of the canonical
// user.
var userStateFields = []string{
	"place",
	"timestamp",
	"distance",
	"latitude",
	"longitude",
	"date",
	"elevation",
	"address",
	"routeDistance",
	"routeDuration",
	"routeDurationWithTraffic",
}

// Pipeline turns one raw fix into a classified, enriched, persisted result.
type Pipeline struct {
	resolver   *user.Resolver
	classifier *geo.Classifier
	enricher   *enrich.Enricher
	store      StateStore
	roster     *roster.Roster
	logger     *slog.Logger
}

// New wires the pipeline stages together.
func New(resolver *user.Resolver, classifier *geo.Classifier, enricher *enrich.Enricher, store StateStore, r *roster.Roster, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		classifier: classifier,
		enricher:   enricher,
		store:      store,
		roster:     r,
		logger:     logger,
	}
}

// Process runs one fix through the full pipeline. The returned fix is the
// classified and enriched result, handed back to synchronous callers even
// when the monotonic guard discarded the persistence step. Past validation,
// storage and enrichment failures degrade to logged no-ops and never abort
// the run.
func (p *Pipeline) Process(ctx context.Context, fix model.Fix, source string) (model.Fix, error) {
	if err := validate(fix); err != nil {
		observability.RecordInvalidMessage()
		return model.Fix{}, err
	}

	fix.Timestamp = NormalizeTimestamp(fix.Timestamp)
	fix.Date = FormatDate(fix.Timestamp)

	fix.User = p.resolver.Resolve(fix.User)

	p.classifier.Classify(&fix)
	p.logger.Debug("classified fix",
		"user", fix.User, "place", fix.Place, "atHome", fix.AtHome, "distance", fix.Distance)

	p.enricher.Enrich(ctx, &fix)

	p.persist(ctx, fix)

	// Presence tracking reacts to the newest classification even when the
	// detailed location record was rejected as stale.
	if err := p.roster.Update(ctx, fix.User, fix.AtHome); err != nil {
		p.logger.Error("failed to update home roster", "user", fix.User, "error", err)
	}

	observability.RecordFixProcessed(source)
	return fix, nil
}

func validate(fix model.Fix) error {
	if fix.Timestamp <= 0 {
		return ErrInvalidMessage
	}
	if math.IsNaN(fix.Latitude) || math.IsInf(fix.Latitude, 0) || fix.Latitude < -90 || fix.Latitude > 90 {
		return ErrInvalidMessage
	}
	if math.IsNaN(fix.Longitude) || math.IsInf(fix.Longitude, 0) || fix.Longitude < -180 || fix.Longitude > 180 {
		return ErrInvalidMessage
	}
	return nil
}

// persist writes the fix into the per-user state slots unless a newer
// timestamp is already stored. Stale fixes are an expected no-op outcome,
// not an error. A failed read of the stored timestamp aborts the write for
// this fix: overwriting possibly-newer data is worse than dropping one
// update.
func (p *Pipeline) persist(ctx context.Context, fix model.Fix) {
	key := user.StorageKey(fix.User)

	for _, field := range userStateFields {
		if err := p.store.EnsureState(ctx, key+"."+field); err != nil {
			p.logger.Error("failed to provision state slot", "user", key, "field", field, "error", err)
			return
		}
	}

	stored, ok, err := p.store.GetState(ctx, key+".timestamp")
	if err != nil {
		p.logger.Error("failed to read stored timestamp, skipping persistence", "user", key, "error", err)
		return
	}
	if ok {
		oldTS, parseErr := strconv.ParseInt(stored, 10, 64)
		if parseErr == nil && fix.Timestamp <= oldTS {
			p.logger.Warn("found a newer place for this user, skipping update", "user", key)
			observability.RecordStaleUpdate()
			return
		}
	}

	p.setValues(ctx, key, fix)
}

// setValues writes every derived field individually: last write wins per
// key and a failed set is logged but not rolled back.
func (p *Pipeline) setValues(ctx context.Context, key string, fix model.Fix) {
	p.logger.Debug("setting values for user", "user", key)

	values := map[string]string{
		"timestamp":                strconv.FormatInt(fix.Timestamp, 10),
		"date":                     fix.Date,
		"place":                    fix.Place,
		"latitude":                 strconv.FormatFloat(fix.Latitude, 'f', -1, 64),
		"longitude":                strconv.FormatFloat(fix.Longitude, 'f', -1, 64),
		"distance":                 strconv.FormatFloat(fix.Distance, 'f', -1, 64),
		"address":                  fix.Address,
		"elevation":                strconv.FormatFloat(fix.Elevation, 'f', -1, 64),
		"routeDistance":            fix.RouteDistance,
		"routeDuration":            fix.RouteDuration,
		"routeDurationWithTraffic": fix.RouteDurationWithTraffic,
	}

	for _, field := range userStateFields {
		if err := p.store.SetState(ctx, key+"."+field, values[field]); err != nil {
			p.logger.Warn("error while setting value", "user", key, "field", field, "error", err)
		}
	}
}
