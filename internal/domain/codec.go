package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// IdentityPolicy decides what reconstitution does with persisted id, date and clicks.
type IdentityPolicy int

const (
	// PreserveIdentity keeps persisted id, date and clicks.
	PreserveIdentity IdentityPolicy = iota
	// FreshIdentity issues a new id and date and resets clicks on every load.
	FreshIdentity
)

// ParseIdentityPolicy accepts "preserve" or "fresh".
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preserve":
		return PreserveIdentity, nil
	case "fresh":
		return FreshIdentity, nil
	}
	return 0, errors.New("unknown identity policy", j.KV("policy", s))
}

func (p IdentityPolicy) String() string {
	if p == FreshIdentity {
		return "fresh"
	}
	return "preserve"
}

// plainRecord is the persisted shape of one workout. Pace and speed are written
// for readers of the blob and are never read back.
type plainRecord struct {
	Type          string     `json:"type"`
	Coords        []float64  `json:"coords"`
	Distance      float64    `json:"distance"`
	Duration      float64    `json:"duration"`
	Cadence       *float64   `json:"cadence,omitempty"`
	ElevationGain *float64   `json:"elevationGain,omitempty"`
	Pace          any        `json:"pace,omitempty"`
	Speed         any        `json:"speed,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	ID            string     `json:"id,omitempty"`
	Clicks        int        `json:"clicks"`
}

// storedRecord is the decode-side shape. Identity fields stay raw so that a bad
// date, id or click count only matters when it is going to be kept.
type storedRecord struct {
	Type          string          `json:"type"`
	Coords        []float64       `json:"coords"`
	Distance      float64         `json:"distance"`
	Duration      float64         `json:"duration"`
	Cadence       *float64        `json:"cadence"`
	Candence      *float64        `json:"candence"`
	ElevationGain *float64        `json:"elevationGain"`
	Date          json.RawMessage `json:"date"`
	ID            json.RawMessage `json:"id"`
	Clicks        json.RawMessage `json:"clicks"`
}

// Codec serializes workouts to the persisted blob and rebuilds them from it.
type Codec struct {
	factory *Factory
	policy  IdentityPolicy
}

// NewCodec constructs a Codec that rebuilds workouts through factory.
func NewCodec(factory *Factory, policy IdentityPolicy) Codec {
	if factory == nil {
		factory = defaultFactory
	}
	return Codec{factory: factory, policy: policy}
}

// Encode renders workouts as a JSON array in the given order.
func (c Codec) Encode(workouts []Workout) (string, error) {
	out := make([]plainRecord, 0, len(workouts))
	for _, w := range workouts {
		date := w.Date()
		p := plainRecord{
			Type:     string(w.Type()),
			Coords:   []float64{w.Coords().Lat, w.Coords().Lng},
			Distance: w.Distance(),
			Duration: w.Duration(),
			Date:     &date,
			ID:       string(w.ID()),
			Clicks:   w.Clicks(),
		}
		switch v := w.(type) {
		case *Running:
			cadence := float64(v.Cadence())
			p.Cadence = &cadence
			p.Pace = v.Pace()
		case *Cycling:
			gain := v.ElevationGain()
			p.ElevationGain = &gain
			p.Speed = v.Speed()
		default:
			return "", errors.New("unsupported workout variant", j.KV("type", string(w.Type())))
		}
		out = append(out, p)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "encode workouts")
	}
	return string(data), nil
}

// Decode rebuilds typed workouts from a blob, preserving array order. Records that
// cannot be rebuilt are skipped and returned as *UnknownVariantError or
// *InvalidRecordError. The final error is set only when the blob as a whole is unreadable.
func (c Codec) Decode(blob string) ([]Workout, []error, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raws); err != nil {
		return nil, nil, errors.Wrap(ErrMalformedBlob, err.Error())
	}

	workouts := make([]Workout, 0, len(raws))
	var skipped []error
	seen := make(map[ID]bool, len(raws))

	for i, raw := range raws {
		w, p, err := c.decodeOne(i, raw)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if c.policy == PreserveIdentity {
			applyIdentity(w, p, seen)
		}
		seen[w.ID()] = true
		workouts = append(workouts, w)
	}
	return workouts, skipped, nil
}

func (c Codec) decodeOne(i int, raw json.RawMessage) (Workout, storedRecord, error) {
	var p storedRecord
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, p, &InvalidRecordError{Index: i, Reason: "decode", Err: err}
	}

	var extra *float64
	switch Type(p.Type) {
	case TypeRunning:
		extra = p.Cadence
		if extra == nil {
			extra = p.Candence
		}
	case TypeCycling:
		extra = p.ElevationGain
	default:
		return nil, p, &UnknownVariantError{Type: p.Type, Index: i}
	}
	if extra == nil {
		return nil, p, &InvalidRecordError{Index: i, Reason: "missing " + extraFieldName(Type(p.Type))}
	}

	if len(p.Coords) != 2 || !finite(p.Coords[0]) || !finite(p.Coords[1]) {
		return nil, p, &InvalidRecordError{Index: i, Reason: "coords must be a [lat, lng] pair"}
	}

	in, err := Validate(Type(p.Type), p.Distance, p.Duration, *extra)
	if err != nil {
		return nil, p, &InvalidRecordError{Index: i, Reason: "validation", Err: err}
	}

	w, err := c.factory.Build(Coords{Lat: p.Coords[0], Lng: p.Coords[1]}, in)
	return w, p, err
}

// applyIdentity copies persisted identity onto w. A missing, unreadable or repeated
// id keeps the freshly issued one so ids stay unique; an unreadable date keeps the
// fresh date and an unreadable click count reads as zero.
func applyIdentity(w Workout, p storedRecord, seen map[ID]bool) {
	id := w.ID()
	var rawID string
	if json.Unmarshal(p.ID, &rawID) == nil && rawID != "" && !seen[ID(rawID)] {
		id = ID(rawID)
	}

	date := w.Date()
	var rawDate time.Time
	if json.Unmarshal(p.Date, &rawDate) == nil && !rawDate.IsZero() {
		date = rawDate
	}

	clicks := 0
	var rawClicks float64
	if json.Unmarshal(p.Clicks, &rawClicks) == nil &&
		rawClicks > 0 && rawClicks <= math.MaxInt32 && rawClicks == math.Trunc(rawClicks) {
		clicks = int(rawClicks)
	}
	restore(w, id, date, clicks)
}
