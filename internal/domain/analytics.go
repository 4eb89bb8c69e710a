package domain

// RecentClicksLimit caps AnalyticsSummary.RecentClicks
const RecentClicksLimit = 10

// RecentClick is the projection of a ClickEvent shown in a summary
type RecentClick struct {
	Timestamp int64  `json:"timestamp"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Device    string `json:"device"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Referrer  string `json:"referrer"`
}

// HourlyClicks counts the clicks whose timestamp falls in the hour starting at Hour
type HourlyClicks struct {
	Hour   int64 `json:"hour"`
	Clicks int64 `json:"clicks"`
}

// TimeRange spans the first and last aggregated click
type TimeRange struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
}

// AnalyticsSummary aggregates the click events of one code.
// Error is set instead of failing when aggregation could not complete.
type AnalyticsSummary struct {
	Code             string           `json:"code"`
	TotalClicks      int64            `json:"totalClicks"`
	UniqueVisitors   int64            `json:"uniqueVisitors"`
	ClicksByCountry  map[string]int64 `json:"clicksByCountry"`
	ClicksByDevice   map[string]int64 `json:"clicksByDevice"`
	ClicksByBrowser  map[string]int64 `json:"clicksByBrowser"`
	ClicksByOS       map[string]int64 `json:"clicksByOs"`
	ClicksByReferrer map[string]int64 `json:"clicksByReferrer"`
	ClicksByHour     []HourlyClicks   `json:"clicksByHour"`
	TimeRange        *TimeRange       `json:"timeRange,omitempty"`
	RecentClicks     []RecentClick    `json:"recentClicks"`
	Error            string           `json:"error,omitempty"`
}

// NewAnalyticsSummary returns a zeroed summary with empty, non-nil breakdowns
func NewAnalyticsSummary(code string) *AnalyticsSummary {
	return &AnalyticsSummary{
		Code:             code,
		ClicksByCountry:  map[string]int64{},
		ClicksByDevice:   map[string]int64{},
		ClicksByBrowser:  map[string]int64{},
		ClicksByOS:       map[string]int64{},
		ClicksByReferrer: map[string]int64{},
		ClicksByHour:     []HourlyClicks{},
		RecentClicks:     []RecentClick{},
	}
}

// Failed reports whether the summary is degraded
func (s *AnalyticsSummary) Failed() bool {
	return s.Error != ""
}
