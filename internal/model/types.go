package model

// Place describes a named circular geofence.
type Place struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Radius    float64 `json:"radius" yaml:"radius"`
}

// UserAlias maps a raw inbound identifier to a canonical display name.
// Matching is case-insensitive; the first configured entry wins.
type UserAlias struct {
	Name        string `json:"name" yaml:"name"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// Fix is one reported location event, progressively filled in by the
// pipeline: classification first, then optional enrichment.
type Fix struct {
	User      string  `json:"user"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`

	AtHome   bool    `json:"atHome"`
	Place    string  `json:"place"`
	Distance float64 `json:"distance"`

	Address                  string  `json:"address"`
	Elevation                float64 `json:"elevation"`
	RouteDistance            string  `json:"routeDistance"`
	RouteDuration            string  `json:"routeDuration"`
	RouteDurationWithTraffic string  `json:"routeDurationWithTraffic"`
}

// DirectFix is the request body accepted on the HTTP ingest endpoint.
// Coordinates and timestamp are pointers so that absent fields can be
// rejected rather than silently defaulting to zero.
type DirectFix struct {
	User      string   `json:"user"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp *int64   `json:"timestamp"`
}

// OwnTracksPayload is the location-sharing protocol shape received on the
// subscribed MQTT channel. Coordinates are pointers so that absent fields
// can be told apart from a fix on the equator or prime meridian.
type OwnTracksPayload struct {
	Type string   `json:"_type"`
	TID  string   `json:"tid"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Tst  int64    `json:"tst"`
}

// HomeStatus is the aggregate presence snapshot derived from the roster.
type HomeStatus struct {
	PersonsAtHome []string `json:"personsAtHome"`
	NumberAtHome  int      `json:"numberAtHome"`
	AnybodyAtHome bool     `json:"anybodyAtHome"`
}
