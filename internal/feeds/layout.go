package feeds

import "path/filepath"

// Layout locates the collector outputs under the data directory
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dataDir
func NewLayout(dataDir string) Layout {
	return Layout{Root: dataDir}
}

// NetworkPath is the OSM road network export
func (l Layout) NetworkPath() string {
	return filepath.Join(l.Root, "raw", "osm", "osm_network.json")
}

// SensorsPath is the bike counter metadata
func (l Layout) SensorsPath() string {
	return filepath.Join(l.Root, "raw", "bike", "bike_sensors_metadata.json")
}

// CountsDir holds one bike_counters_*.json file per collected hour
func (l Layout) CountsDir() string {
	return filepath.Join(l.Root, "raw", "bike")
}

// InfrastructurePath is the cycling facility layer
func (l Layout) InfrastructurePath() string {
	return filepath.Join(l.Root, "raw", "bike", "bike_infrastructure.json")
}

// WeatherDir holds weather_data.json or timestamped weather_data_*.json files
func (l Layout) WeatherDir() string {
	return filepath.Join(l.Root, "raw", "weather")
}

// ProcessedDir receives the exported tables
func (l Layout) ProcessedDir() string {
	return filepath.Join(l.Root, "processed")
}
