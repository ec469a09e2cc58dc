package model

import "time"

// RunSummary captures metrics from a single record-document run.
type RunSummary struct {
	RunID         string
	RecordsPath   string
	RecordsSHA256 string
	OutputPath    string
	OutputSHA256  string
	BackupPath    string

	ReferenceEntries int
	NullifyCodes     int
	DegradedIndex    bool

	EmptyDiagnosesBefore int
	EmptyDiagnosesAfter  int

	AlreadyProcessed bool
	DryRun           bool
	Ledger           *Ledger

	DurationReference time.Duration
	DurationResolve   time.Duration
	DurationPersist   time.Duration
	DurationRecord    time.Duration
	DurationTotal     time.Duration
}

// Unmatched returns the number of processed patients without a reference match.
func (s *RunSummary) Unmatched() int64 {
	if s.Ledger == nil {
		return 0
	}
	return s.Ledger.Count(PatientsProcessed) - s.Ledger.Count(PatientsMatched)
}

// UnmatchedRatio returns Unmatched over processed patients, or 0 when none ran.
func (s *RunSummary) UnmatchedRatio() float64 {
	if s.Ledger == nil {
		return 0
	}
	processed := s.Ledger.Count(PatientsProcessed)
	if processed == 0 {
		return 0
	}
	return float64(s.Unmatched()) / float64(processed)
}
