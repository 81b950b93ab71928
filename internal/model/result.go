package model

import "time"

// RecordStatus classifies the outcome of processing one record.
type RecordStatus string

const (
	StatusNew       RecordStatus = "new"
	StatusDuplicate RecordStatus = "duplicate"
	StatusRejected  RecordStatus = "rejected"
	StatusError     RecordStatus = "error"
)

// MatchStrategy names the resolver strategy that produced a duplicate match.
type MatchStrategy string

const (
	MatchIdentity  MatchStrategy = "identity"
	MatchFuzzyName MatchStrategy = "fuzzy_name"
	MatchAddress   MatchStrategy = "address"
	MatchGeo       MatchStrategy = "geo"
)

// QualityLevel buckets an overall quality score.
type QualityLevel string

const (
	LevelExcellent    QualityLevel = "excellent"
	LevelGood         QualityLevel = "good"
	LevelAcceptable   QualityLevel = "acceptable"
	LevelPoor         QualityLevel = "poor"
	LevelUnacceptable QualityLevel = "unacceptable"
)

// QualityMetrics holds the five independent quality scores for a record.
// All scores are in [0,1].
type QualityMetrics struct {
	Completeness      float64 `json:"completeness"`
	PhotoScore        float64 `json:"photo_score"`
	DataFreshness     float64 `json:"data_freshness"`
	SourceReliability float64 `json:"source_reliability"`
	ValidationScore   float64 `json:"validation_score"`
}

// Overall quality score weights.
const (
	weightCompleteness = 0.40
	weightPhoto        = 0.30
	weightFreshness    = 0.15
	weightReliability  = 0.10
	weightValidation   = 0.05
)

// OverallScore combines the five metrics with fixed weights.
func (m QualityMetrics) OverallScore() float64 {
	return m.Completeness*weightCompleteness +
		m.PhotoScore*weightPhoto +
		m.DataFreshness*weightFreshness +
		m.SourceReliability*weightReliability +
		m.ValidationScore*weightValidation
}

// Level buckets the overall score into a quality level.
func (m QualityMetrics) Level() QualityLevel {
	switch score := m.OverallScore(); {
	case score >= 0.9:
		return LevelExcellent
	case score >= 0.8:
		return LevelGood
	case score >= 0.7:
		return LevelAcceptable
	case score >= 0.6:
		return LevelPoor
	default:
		return LevelUnacceptable
	}
}

// PipelineResult is the per-record outcome of the ingestion pipeline.
// It is created once per input record and never mutated after return.
type PipelineResult struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	City   string       `json:"city"`
	Status RecordStatus `json:"status"`

	// Set when Status is StatusDuplicate.
	DuplicateOf string        `json:"duplicate_of,omitempty"`
	Strategy    MatchStrategy `json:"strategy,omitempty"`

	Metrics *QualityMetrics `json:"quality_metrics,omitempty"`

	SearchIndexed bool `json:"search_indexed"`
	CacheUpdated  bool `json:"cache_updated"`

	Elapsed  time.Duration `json:"elapsed_ns"`
	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// PipelineStatistics holds running counters owned by the orchestrator.
type PipelineStatistics struct {
	Processed  int `json:"processed"`
	New        int `json:"new"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Errored    int `json:"errored"`

	IdentityMatches int `json:"identity_matches"`
	FuzzyMatches    int `json:"fuzzy_matches"`
	AddressMatches  int `json:"address_matches"`
	GeoMatches      int `json:"geo_matches"`

	SearchIndexed int `json:"search_indexed"`
	CacheUpdated  int `json:"cache_updated"`

	ProcessingTime time.Duration `json:"processing_time_ns"`
}

// SuccessRate is the fraction of processed records accepted as new.
func (s PipelineStatistics) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.New) / float64(s.Processed)
}

// ErrorRate is the fraction of processed records that errored.
func (s PipelineStatistics) ErrorRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Errored) / float64(s.Processed)
}
