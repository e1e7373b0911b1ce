// Package geo classifies fixes against the configured geofences. It is
// pure computation, no I/O.
package geo

import (
	"github.com/paulmach/orb"
	geodist "github.com/paulmach/orb/geo"

	"placewatch/presence-server/internal/model"
)

// Classifier decides geofence containment for incoming fixes.
type Classifier struct {
	homeName      string
	homeLatitude  float64
	homeLongitude float64
	homeRadius    float64
	homeSet       bool

	places []model.Place
}

// NewClassifier builds a classifier for the given home circle and named
// places. A zero home coordinate pair is treated as unset: nothing matches
// the home circle and the distance from home defaults to 0.
func NewClassifier(homeName string, homeLat, homeLon, homeRadius float64, places []model.Place) *Classifier {
	if homeName == "" {
		homeName = "Home"
	}
	return &Classifier{
		homeName:      homeName,
		homeLatitude:  homeLat,
		homeLongitude: homeLon,
		homeRadius:    homeRadius,
		homeSet:       homeLat != 0 || homeLon != 0,
		places:        places,
	}
}

// Classify fills in the AtHome, Place and Distance fields of the fix.
// Home always wins over any named place; within named places the configured
// order is the tie-break and evaluation stops at the first match.
func (c *Classifier) Classify(fix *model.Fix) {
	fix.AtHome = false
	fix.Place = ""
	fix.Distance = 0

	point := orb.Point{fix.Longitude, fix.Latitude}

	if c.homeSet {
		fix.Distance = geodist.DistanceHaversine(point, orb.Point{c.homeLongitude, c.homeLatitude})
		if fix.Distance <= c.homeRadius {
			fix.AtHome = true
			fix.Place = c.homeName
			return
		}
	}

	for _, place := range c.places {
		d := geodist.DistanceHaversine(point, orb.Point{place.Longitude, place.Latitude})
		if d <= place.Radius {
			fix.Place = place.Name
			return
		}
	}
}
