package models

import "time"

// PipelineRun tracks one dataset build (pipeline_runs table)
type PipelineRun struct {
	ID     string `json:"id" db:"id"`
	Status string `json:"status" db:"status"` // pending, running, completed, failed

	Summary      *RunSummary `json:"summary,omitempty" db:"summary_json"`
	ErrorMessage string      `json:"error_message,omitempty" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// RunStatus constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunSummary reports coverage of one build so consumers can judge the table
type RunSummary struct {
	Edges struct {
		Total             int  `json:"total"`
		Degenerate        int  `json:"degenerate"`
		WithSensor        int  `json:"with_sensor"`
		WithDedicatedLane int  `json:"with_dedicated_lane"`
		FacilityLayer     bool `json:"facility_layer"`
	} `json:"edges"`

	Sensors struct {
		Total        int            `json:"total"`
		WithLocation int            `json:"with_location"`
		Matched      int            `json:"matched"`
		Excluded     map[string]int `json:"excluded"` // reason -> count
	} `json:"sensors"`

	Counts struct {
		FilesRead         int `json:"files_read"`
		FilesSkipped      int `json:"files_skipped"`
		RecordsRead       int `json:"records_read"`
		RecordsInvalid    int `json:"records_invalid"`
		RecordsUnmatched  int `json:"records_unmatched"`
		RecordsUsed       int `json:"records_used"`
		DistinctTimestamp int `json:"distinct_timestamps"`
	} `json:"counts"`

	Weather struct {
		Source            string  `json:"source"`
		Records           int     `json:"records"`
		RowsMissing       int     `json:"rows_missing"`
		StationDistanceKm float64 `json:"station_distance_km,omitempty"` // from the reference point
	} `json:"weather"`

	Rows struct {
		Total       int        `json:"total"`
		WithTarget  int        `json:"with_target"`
		BikeCount   ValueStats `json:"bike_count"`
		Temperature ValueStats `json:"temperature_c"`
		RainShare   float64    `json:"rain_share"`
		OnBikeLane  int        `json:"on_bike_lane"`
	} `json:"rows"`

	SensorStats map[string]ValueStats `json:"sensor_stats,omitempty"`
}

// ValueStats summarises a numeric column
type ValueStats struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
