// Package geolocation provides the user's position to the controller.
package geolocation

import (
	"context"
	"strconv"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"example.com/workouts/internal/domain"
)

// ErrUnavailable is returned when no position can be determined.
var ErrUnavailable = errors.New("position unavailable", j.C("ERR_5d2a0c7f91e34b68"))

// Static always reports the same position.
type Static struct {
	Coords domain.Coords
}

func (s Static) Locate(ctx context.Context) (domain.Coords, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coords{}, err
	}
	return s.Coords, nil
}

// Unavailable never resolves a position.
type Unavailable struct{}

func (Unavailable) Locate(context.Context) (domain.Coords, error) {
	return domain.Coords{}, ErrUnavailable
}

// ParseCoords reads a "lat,lng" pair.
func ParseCoords(s string) (domain.Coords, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coords{}, errors.New("coordinates must be lat,lng", j.KV("value", s))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coords{}, errors.Wrap(err, "parse latitude", j.KV("value", s))
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coords{}, errors.Wrap(err, "parse longitude", j.KV("value", s))
	}
	c := domain.Coords{Lat: lat, Lng: lng}
	if err := domain.ValidateCoords(c); err != nil {
		return domain.Coords{}, errors.Wrap(err, "invalid coordinates", j.KV("value", s))
	}
	return c, nil
}
