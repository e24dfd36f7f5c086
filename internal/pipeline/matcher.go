package pipeline

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// MatchResult is the sensor to edge association of one run
type MatchResult struct {
	Matches  map[string]models.SensorMatch // sensor id -> match
	EdgeIDs  []int64                       // distinct edges carrying a sensor, ascending
	Excluded []models.ExcludedSensor
}

// HasEdge reports whether at least one sensor was matched to edgeID
func (r *MatchResult) HasEdge(edgeID int64) bool {
	i := sort.Search(len(r.EdgeIDs), func(i int) bool { return r.EdgeIDs[i] >= edgeID })
	return i < len(r.EdgeIDs) && r.EdgeIDs[i] == edgeID
}

// ExcludedByReason counts exclusions per reason
func (r *MatchResult) ExcludedByReason() map[string]int {
	out := make(map[string]int)
	for _, e := range r.Excluded {
		out[e.Reason]++
	}
	return out
}

// MatchSensors associates every located sensor with its nearest edge when
// that edge lies within maxDistance metres (inclusive). Sensor positions are
// geographic and projected with pr before the query. Sensors without a
// usable position, or too far from every edge, are excluded and logged.
func MatchSensors(sensors []models.Sensor, ix *spatial.Index, pr spatial.Projector, maxDistance float64, log *zap.Logger) *MatchResult {
	res := &MatchResult{Matches: make(map[string]models.SensorMatch)}
	edgeSet := make(map[int64]struct{})

	for _, s := range sensors {
		if s.Location == nil {
			res.Excluded = append(res.Excluded, models.ExcludedSensor{SensorID: s.ID, Reason: models.ExclusionNoLocation})
			continue
		}
		if !spatial.ValidLatLon(s.Location.Lat(), s.Location.Lon()) {
			res.Excluded = append(res.Excluded, models.ExcludedSensor{SensorID: s.ID, Reason: models.ExclusionInvalidLocation})
			log.Warn("sensor location out of range",
				zap.String("sensor_id", s.ID),
				zap.Float64("lat", s.Location.Lat()),
				zap.Float64("lon", s.Location.Lon()))
			continue
		}

		edgeID, dist, ok := ix.Nearest(pr.Project(*s.Location))
		if !ok {
			res.Excluded = append(res.Excluded, models.ExcludedSensor{SensorID: s.ID, Reason: models.ExclusionNoEdges})
			continue
		}
		if dist > maxDistance {
			res.Excluded = append(res.Excluded, models.ExcludedSensor{
				SensorID:  s.ID,
				Reason:    models.ExclusionTooFar,
				DistanceM: roundDecimeter(dist),
			})
			log.Info("sensor excluded, nearest edge too far",
				zap.String("sensor_id", s.ID),
				zap.Int64("edge_id", edgeID),
				zap.Float64("distance_m", roundDecimeter(dist)))
			continue
		}

		res.Matches[s.ID] = models.SensorMatch{
			SensorID:   s.ID,
			SensorName: s.Name,
			EdgeID:     edgeID,
			DistanceM:  roundDecimeter(dist),
		}
		edgeSet[edgeID] = struct{}{}
	}

	res.EdgeIDs = make([]int64, 0, len(edgeSet))
	for id := range edgeSet {
		res.EdgeIDs = append(res.EdgeIDs, id)
	}
	sort.Slice(res.EdgeIDs, func(i, j int) bool { return res.EdgeIDs[i] < res.EdgeIDs[j] })

	log.Info("sensors matched",
		zap.Int("matched", len(res.Matches)),
		zap.Int("edges", len(res.EdgeIDs)),
		zap.Int("excluded", len(res.Excluded)))
	return res
}

func roundDecimeter(d float64) float64 {
	return math.Round(d*10) / 10
}
