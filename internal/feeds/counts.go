package feeds

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// CountFilePattern matches the hourly files written by the counter collector
const CountFilePattern = "bike_counters_*.json"

// CountFeed is the merged content of every hourly count file
type CountFeed struct {
	Records        []models.CountRecord
	FilesRead      int
	FilesSkipped   int
	RecordsInvalid int
	Skipped        []SkippableRecordError
}

type countFile struct {
	Records []json.RawMessage `json:"records"`
}

type countEntry struct {
	CounterID flexString `json:"counter_id"`
	Timestamp string     `json:"timestamp"`
	Count     *float64   `json:"count"`
}

// LoadCounts merges all count files of dir in name order. A corrupt file or
// record is skipped and counted; no file at all is fatal.
func LoadCounts(dir string, loc *time.Location, log *zap.Logger) (*CountFeed, error) {
	files, err := filepath.Glob(filepath.Join(dir, CountFilePattern))
	if err != nil {
		return nil, fatal("counts", dir, "invalid glob", err)
	}
	if len(files) == 0 {
		return nil, fatal("counts", dir, "no "+CountFilePattern+" files", nil)
	}
	sort.Strings(files)

	feed := &CountFeed{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			feed.skipFile(path, err.Error(), log)
			continue
		}
		var f countFile
		if err := json.Unmarshal(data, &f); err != nil {
			feed.skipFile(path, err.Error(), log)
			continue
		}
		feed.FilesRead++

		for i, raw := range f.Records {
			rec, err := parseCountEntry(raw, loc)
			if err != nil {
				feed.RecordsInvalid++
				feed.Skipped = append(feed.Skipped, SkippableRecordError{
					Source: fmt.Sprintf("%s record %d", filepath.Base(path), i),
					Reason: err.Error(),
				})
				continue
			}
			feed.Records = append(feed.Records, rec)
		}
	}

	if feed.RecordsInvalid > 0 {
		log.Warn("invalid count records skipped", zap.Int("records", feed.RecordsInvalid))
	}
	log.Info("count files loaded",
		zap.Int("files_read", feed.FilesRead),
		zap.Int("files_skipped", feed.FilesSkipped),
		zap.Int("records", len(feed.Records)))
	return feed, nil
}

func (f *CountFeed) skipFile(path, reason string, log *zap.Logger) {
	f.FilesSkipped++
	f.Skipped = append(f.Skipped, SkippableRecordError{Source: filepath.Base(path), Reason: reason})
	log.Warn("count file skipped", zap.String("file", filepath.Base(path)), zap.String("reason", reason))
}

func parseCountEntry(raw json.RawMessage, loc *time.Location) (models.CountRecord, error) {
	var e countEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return models.CountRecord{}, err
	}
	if e.CounterID == "" {
		return models.CountRecord{}, fmt.Errorf("missing counter_id")
	}
	ts, err := ParseTimestamp(e.Timestamp, loc)
	if err != nil {
		return models.CountRecord{}, err
	}
	if e.Count == nil {
		return models.CountRecord{}, fmt.Errorf("missing count")
	}
	c := *e.Count
	if c < 0 || c != math.Trunc(c) {
		return models.CountRecord{}, fmt.Errorf("invalid count %v", c)
	}
	return models.CountRecord{CounterID: string(e.CounterID), Timestamp: ts, Count: int64(c)}, nil
}
