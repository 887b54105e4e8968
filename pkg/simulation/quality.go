package simulation

import "math"

const (
	// TargetReverberation is the RT60 (s) scored as ideal for amplified music.
	TargetReverberation = 1.5

	// RainHumidity is the relative humidity treated as rainfall for
	// outdoor venues.
	RainHumidity = 95.0
)

// Recommendation texts.
const (
	RecommendIndoor  = "Consider indoor alternative during rain"
	RecommendSmaller = "Consider smaller space for better atmosphere"
	RecommendCrowded = "Space might be too crowded for optimal acoustics"
)

// QualityReport scores the venue for a planned attendance.
type QualityReport struct {
	Quality         float64  `json:"quality"`
	Clarity         float64  `json:"clarity"`
	Reverberation   float64  `json:"reverberation"`
	Intimacy        float64  `json:"intimacy"`
	BassResponse    float64  `json:"bass_response"`
	OccupancyRate   float64  `json:"occupancy_rate"`
	Recommendations []string `json:"recommendations"`
}

// Quality scores the current snapshot: clarity at the front-of-house
// position, reverberation closeness to TargetReverberation, intimacy from
// room size and bass response, weighted 0.3/0.3/0.2/0.2. Outdoor venues
// in rain lose 30%; occupancy below half or above 120% of the optimal
// capacity costs 20% and 10%.
func (s *Simulation) Quality(attendance int) (QualityReport, error) {
	snap := s.state.Load()
	ref := s.optimizer(snap).ReferencePosition(s.venue)
	res, err := s.eval.Query(ref, s.cfg.Speaker.ReferenceFrequency, s.venue, snap.Profile, snap.Crowd, snap.Environment)
	if err != nil {
		return QualityReport{}, err
	}

	p := snap.Profile
	r := QualityReport{
		Clarity:         res.Clarity,
		Reverberation:   1 / (1 + math.Abs(p.ReverberationTime-TargetReverberation)),
		Intimacy:        1 - (p.Spatial.Width+p.Spatial.Depth)/2,
		BassResponse:    p.Resonance.Low,
		Recommendations: []string{},
	}
	r.Quality = 0.3*r.Clarity + 0.3*r.Reverberation + 0.2*r.Intimacy + 0.2*r.BassResponse

	if !s.venue.Indoor() && snap.Environment.HumidityPercent >= RainHumidity {
		r.Quality *= 0.7
		r.Recommendations = append(r.Recommendations, RecommendIndoor)
	}

	if optimal := s.venue.OptimalCapacity(); optimal > 0 {
		r.OccupancyRate = float64(attendance) / float64(optimal)
		switch {
		case r.OccupancyRate < 0.5:
			r.Quality *= 0.8
			r.Recommendations = append(r.Recommendations, RecommendSmaller)
		case r.OccupancyRate > 1.2:
			r.Quality *= 0.9
			r.Recommendations = append(r.Recommendations, RecommendCrowded)
		}
	}
	return r, nil
}
