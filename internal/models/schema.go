package models

import "time"

// CategorySchema is the versioned encoding contract shared by training and prediction
type CategorySchema struct {
	Version        int                 `json:"version"`
	RunID          string              `json:"run_id"`
	FeatureColumns []string            `json:"feature_columns"`
	Categories     map[string][]string `json:"categories"` // column -> sorted classes
	CreatedAt      time.Time           `json:"created_at"`
}

// UnseenCategory is the code of a categorical value absent at training time
const UnseenCategory = -1

// FeatureVector is one prediction-time row, ordered like CategorySchema.FeatureColumns
type FeatureVector struct {
	EdgeID int64     `json:"edge_id"`
	Values []float64 `json:"values"`
}

// FeatureMatrix is the prediction-time feature set for one target datetime
type FeatureMatrix struct {
	Target        time.Time       `json:"target"`
	WeatherAt     *time.Time      `json:"weather_at,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	Columns       []string        `json:"columns"`
	Rows          []FeatureVector `json:"rows"`
	UnseenValues  map[string]int  `json:"unseen_values,omitempty"` // column -> rows encoded as unseen
}
