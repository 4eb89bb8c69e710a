package domain

// DirectReferrer is stored when a visit carries no Referer header
const DirectReferrer = "direct"

// ClickEvent is one observed redirect. It is written once and never updated.
type ClickEvent struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Code      string `gorm:"not null;size:20;index:idx_click_events_code_ts,priority:1" json:"code"`
	Timestamp int64  `gorm:"not null;index:idx_click_events_code_ts,priority:2" json:"timestamp"`
	IPHash    string `gorm:"not null;size:64" json:"ipHash"`
	Country   string `gorm:"size:100" json:"country"`
	Region    string `gorm:"size:100" json:"region"`
	City      string `gorm:"size:100" json:"city"`
	Device    string `gorm:"size:20" json:"device"`
	Browser   string `gorm:"size:20" json:"browser"`
	OS        string `gorm:"size:20" json:"os"`
	Referrer  string `gorm:"type:text" json:"referrer"`
	ExpiresAt int64  `gorm:"not null;index" json:"expiresAt"`
}

// TableName specifies the table name for GORM
func (ClickEvent) TableName() string {
	return "click_events"
}

// Visit carries the request attributes a click is derived from
type Visit struct {
	ClientIP  string
	UserAgent string
	Referer   string
}
