package feeds

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// Infrastructure is the cycling facility layer in its declared CRS
type Infrastructure struct {
	Geometries []orb.Geometry
	CRS        spatial.CRS
	Skipped    []SkippableRecordError
}

// LoadInfrastructure reads the facility layer. The layer is optional: a
// missing file returns (nil, nil). The CRS comes from metadata.crs, then the
// GeoJSON crs member, then defaultCRS.
func LoadInfrastructure(path string, defaultCRS string, log *zap.Logger) (*Infrastructure, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn("infrastructure layer not found, facility features use defaults", zap.String("path", path))
		return nil, nil
	}

	fc, declared, err := readCollection("infrastructure", path)
	if err != nil {
		return nil, err
	}

	crsName := declared
	if crsName == "" {
		crsName = defaultCRS
	}
	crs, err := spatial.ParseCRS(crsName)
	if err != nil {
		return nil, fatal("infrastructure", path, "unsupported CRS", err)
	}

	infra := &Infrastructure{CRS: crs, Geometries: make([]orb.Geometry, 0, len(fc.Features))}
	for i, raw := range fc.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil || f.Geometry == nil {
			reason := "null geometry"
			if err != nil {
				reason = err.Error()
			}
			infra.Skipped = append(infra.Skipped, SkippableRecordError{
				Source: fmt.Sprintf("%s feature %d", path, i),
				Reason: reason,
			})
			continue
		}
		infra.Geometries = append(infra.Geometries, f.Geometry)
	}

	log.Info("infrastructure loaded",
		zap.Int("facilities", len(infra.Geometries)),
		zap.Int("skipped", len(infra.Skipped)),
		zap.String("crs", string(crs)))
	return infra, nil
}
