package catalog

import (
	"fmt"
	"math"
	"sort"

	"astrocat/internal/model"
)

// MatchConfig controls calibration-frame matching.
type MatchConfig struct {
	// ExposureToleranceSeconds widens dark-frame exposure matching.
	// Zero means exposures must agree after rounding to the nearest
	// second.
	ExposureToleranceSeconds float64
}

// Matcher finds calibration frames (darks, flats) for light frames.
// Matching is conservative: a criterion absent on either side is
// never treated as a wildcard.
type Matcher struct {
	store  Store
	config MatchConfig
}

func NewMatcher(store Store, config MatchConfig) *Matcher {
	return &Matcher{store: store, config: config}
}

// FindMatches returns, for each light frame, the calibration frames
// of the given type that match it, ranked best-first. The result maps
// light-frame file IDs to candidate lists; a light with no matches
// maps to an empty list. Missing candidates are included so the
// caller can point at archived media.
func (m *Matcher) FindMatches(lights []*model.File, frameType model.FrameType) (map[string][]*model.File, error) {
	if frameType != model.FrameDark && frameType != model.FrameFlat {
		return nil, fmt.Errorf("unsupported calibration frame type: %s", frameType)
	}

	candidates, err := m.store.FindFilesByType(frameType)
	if err != nil {
		return nil, fmt.Errorf("loading %s frames: %w", frameType, err)
	}

	matches := make(map[string][]*model.File, len(lights))
	for _, light := range lights {
		var hits []*model.File
		for _, cand := range candidates {
			var ok bool
			switch frameType {
			case model.FrameDark:
				ok = m.darkMatches(light, cand)
			case model.FrameFlat:
				ok = flatMatches(light, cand)
			}
			if ok {
				hits = append(hits, cand)
			}
		}
		rankCandidates(light, hits)
		matches[light.ID] = hits
	}
	return matches, nil
}

// darkMatches requires binning, exposure, gain, and camera to be
// present on both frames and equal. Exposure equality honors the
// configured tolerance.
func (m *Matcher) darkMatches(light, dark *model.File) bool {
	if !int64Equal(light.Binning, dark.Binning) {
		return false
	}
	if !int64Equal(light.Gain, dark.Gain) {
		return false
	}
	if !stringEqual(light.Camera, dark.Camera) {
		return false
	}
	return m.exposureMatches(light.Exposure, dark.Exposure)
}

// flatMatches requires binning, camera, and filter to be present on
// both frames and equal.
func flatMatches(light, flat *model.File) bool {
	if !int64Equal(light.Binning, flat.Binning) {
		return false
	}
	if !stringEqual(light.Camera, flat.Camera) {
		return false
	}
	return stringEqual(light.Filter, flat.Filter)
}

func (m *Matcher) exposureMatches(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	if m.config.ExposureToleranceSeconds <= 0 {
		return math.Round(*a) == math.Round(*b)
	}
	return math.Abs(*a-*b) <= m.config.ExposureToleranceSeconds
}

func int64Equal(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func stringEqual(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// rankCandidates orders candidates by sensor set-temperature
// closeness, then observation-date closeness, then relative path.
// Frames lacking a criterion sort after frames that have it, and the
// path tiebreak keeps the ordering deterministic across runs.
func rankCandidates(light *model.File, candidates []*model.File) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		da, db := tempDistance(light, a), tempDistance(light, b)
		if da != db {
			return da < db
		}
		ta, tb := dateDistance(light, a), dateDistance(light, b)
		if ta != tb {
			return ta < tb
		}
		return a.RelPath < b.RelPath
	})
}

func tempDistance(light, cand *model.File) float64 {
	if light.SetTemp == nil || cand.SetTemp == nil {
		return math.Inf(1)
	}
	return math.Abs(*light.SetTemp - *cand.SetTemp)
}

func dateDistance(light, cand *model.File) float64 {
	if light.DateObs == nil || cand.DateObs == nil {
		return math.Inf(1)
	}
	return math.Abs(light.DateObs.Sub(*cand.DateObs).Seconds())
}
