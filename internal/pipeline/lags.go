package pipeline

import (
	"sort"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// LagConfig sets the positional shifts and the rolling window
type LagConfig struct {
	Short             int
	Long              int
	RollingWindow     int
	RollingMinPeriods int
}

// DeriveLagFeatures sorts rows by (edge, timestamp) and fills the lag and
// rolling columns per edge. Shifts are positional: with gaps between
// timestamps a one-row shift is not a one-hour shift. The rolling mean
// ignores null targets in both the sum and the period count; a window with
// fewer than RollingMinPeriods observed values is null.
func DeriveLagFeatures(rows []models.TrainingRow, cfg LagConfig) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EdgeID != rows[j].EdgeID {
			return rows[i].EdgeID < rows[j].EdgeID
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].EdgeID == rows[start].EdgeID {
			end++
		}
		deriveEdge(rows[start:end], cfg)
		start = end
	}
}

func deriveEdge(seq []models.TrainingRow, cfg LagConfig) {
	var (
		sum   int64
		valid int
	)
	for i := range seq {
		seq[i].BikeCountLag1h = shifted(seq, i, cfg.Short)
		seq[i].BikeCountLag24h = shifted(seq, i, cfg.Long)

		if c := seq[i].BikeCount; c.Valid {
			sum += c.Int64
			valid++
		}
		if out := i - cfg.RollingWindow; out >= 0 {
			if c := seq[out].BikeCount; c.Valid {
				sum -= c.Int64
				valid--
			}
		}
		if valid >= cfg.RollingMinPeriods && valid > 0 {
			seq[i].BikeCountRolling7d = null.FloatFrom(float64(sum) / float64(valid))
		} else {
			seq[i].BikeCountRolling7d = null.Float{}
		}
	}
}

func shifted(seq []models.TrainingRow, i, lag int) null.Int {
	if i-lag < 0 {
		return null.Int{}
	}
	return seq[i-lag].BikeCount
}
