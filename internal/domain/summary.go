package domain

import "time"

// SnapshotSummary describes a freshly loaded snapshot for downstream consumers.
type SnapshotSummary struct {
	SnapshotID      string        `json:"snapshot_id"`
	LoadedAt        time.Time     `json:"loaded_at"`
	LatestDate      string        `json:"latest_date"`
	CaseRows        int           `json:"case_rows"`
	VaccinationRows int           `json:"vaccination_rows"`
	LookupRows      int           `json:"lookup_rows"`
	Regions         int           `json:"regions"`
	TopNewCases     []RegionValue `json:"top_new_cases"`
	TotalCases      int64         `json:"total_cases"`
	TotalDeaths     int64         `json:"total_deaths"`
}
