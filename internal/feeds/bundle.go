package feeds

import (
	"time"

	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// Options control how the raw feeds are decoded
type Options struct {
	Location          *time.Location
	NetworkCRS        string
	InfrastructureCRS string
	RainAboveMM       float64
}

// Bundle is every feed a training-set build consumes
type Bundle struct {
	Network        *Network
	Sensors        []models.Sensor
	Counts         *CountFeed
	Infrastructure *Infrastructure // nil when the layer is absent
	Weather        *WeatherFeed
}

// LoadAll reads the feeds of a training-set build. Required feeds are the
// network, the sensors, the counts and the weather; the first missing one
// aborts with a FatalPreconditionError.
func LoadAll(layout Layout, opts Options, log *zap.Logger) (*Bundle, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bundle{}
	var err error

	if b.Network, err = LoadNetwork(layout.NetworkPath(), opts.NetworkCRS, log); err != nil {
		return nil, err
	}
	if b.Sensors, err = LoadSensors(layout.SensorsPath(), log); err != nil {
		return nil, err
	}
	if b.Counts, err = LoadCounts(layout.CountsDir(), opts.Location, log); err != nil {
		return nil, err
	}
	if b.Weather, err = LoadWeather(layout.WeatherDir(), opts.Location, opts.RainAboveMM, log); err != nil {
		return nil, err
	}
	if b.Infrastructure, err = LoadInfrastructure(layout.InfrastructurePath(), opts.InfrastructureCRS, log); err != nil {
		return nil, err
	}
	return b, nil
}
