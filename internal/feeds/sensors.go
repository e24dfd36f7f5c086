package feeds

import (
	"encoding/json"
	"errors"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

type sensorsFile struct {
	Sensors map[string]sensorEntry `json:"sensors"`
}

type sensorEntry struct {
	Name    string       `json:"name"`
	Lat     *float64     `json:"lat"`
	Lon     *float64     `json:"lon"`
	Flows   []flexString `json:"flows"`
	Total   *float64     `json:"total"`
	LastDay *float64     `json:"lastDay"`
}

// LoadSensors reads the counter metadata, sorted by id. A sensor whose lat or
// lon is null or zero has no location; it is kept and later excluded by the matcher.
func LoadSensors(path string, log *zap.Logger) ([]models.Sensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fatal("sensors", path, "file not found", err)
		}
		return nil, fatal("sensors", path, "unreadable file", err)
	}

	var f sensorsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fatal("sensors", path, "invalid sensors document", err)
	}
	if f.Sensors == nil {
		return nil, fatal("sensors", path, "missing \"sensors\" object", nil)
	}

	sensors := make([]models.Sensor, 0, len(f.Sensors))
	withLocation := 0
	for id, e := range f.Sensors {
		s := models.Sensor{
			ID:      id,
			Name:    e.Name,
			Total:   int64OrZero(e.Total),
			LastDay: int64OrZero(e.LastDay),
		}
		for _, flow := range e.Flows {
			s.FlowIDs = append(s.FlowIDs, string(flow))
		}
		if e.Lat != nil && e.Lon != nil && *e.Lat != 0 && *e.Lon != 0 {
			s.Location = &orb.Point{*e.Lon, *e.Lat}
			withLocation++
		}
		sensors = append(sensors, s)
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].ID < sensors[j].ID })

	log.Info("sensors loaded", zap.Int("sensors", len(sensors)), zap.Int("with_location", withLocation))
	return sensors, nil
}

func int64OrZero(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(*v)
}
