// Package analytics records retrieval activity: events are published to
// Kafka in batches and folded into in-process counters served over HTTP.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventIndexBuild EventType = "index_build"
	EventEvaluation EventType = "evaluation"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Model     string    `json:"model"`
	Version   int64     `json:"index_version"`
	Queries   int       `json:"queries"`
	K         int       `json:"k"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	Model     string    `json:"model"`
	Version   int64     `json:"index_version"`
	Items     int       `json:"items"`
	Source    string    `json:"source"`
	LatencyMs int64     `json:"latency_ms"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type EvaluationEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	K         int       `json:"k"`
	Queries   int       `json:"queries"`
	MAP       float64   `json:"map"`
	GradedMAP float64   `json:"graded_map"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker receives analytics events. key picks the Kafka partition.
type Tracker interface {
	Track(key string, event any)
}

type multiTracker []Tracker

func (m multiTracker) Track(key string, event any) {
	for _, t := range m {
		t.Track(key, event)
	}
}

// Tee fans every event out to each non-nil tracker.
func Tee(trackers ...Tracker) Tracker {
	var out multiTracker
	for _, t := range trackers {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
