package domain

// AnonymousOwner is recorded as the owner of links created without an identity
const AnonymousOwner = "anonymous"

// ShortLink maps a short code to its destination.
// Timestamps are milliseconds since the epoch (UTC).
type ShortLink struct {
	Code          string `gorm:"primaryKey;size:20" json:"code"`
	OriginalURL   string `gorm:"not null;type:text" json:"originalUrl"`
	OwnerID       string `gorm:"not null;size:64;index:idx_links_owner_created,priority:1" json:"ownerId"`
	CreatedAt     int64  `gorm:"not null;autoCreateTime:false;index:idx_links_owner_created,priority:2" json:"createdAt"`
	ExpiresAt     *int64 `json:"expiresAt,omitempty"`
	ClickCount    int64  `gorm:"not null;default:0" json:"clickCount"`
	IsCustomAlias bool   `gorm:"not null;default:false" json:"isCustomAlias"`
	IsSafe        bool   `gorm:"not null" json:"isSafe"`
	LastClickedAt *int64 `json:"lastClickedAt,omitempty"`
}

// TableName specifies the table name for GORM
func (ShortLink) TableName() string {
	return "short_links"
}

// IsExpired reports whether the link's expiry lies at or before now (ms epoch).
// Links without an expiry never expire.
func (l *ShortLink) IsExpired(now int64) bool {
	return l.ExpiresAt != nil && *l.ExpiresAt <= now
}

// RateLimitWindow is a persisted request counter for one identifier and window.
// Only the schema exists; nothing reads or writes it yet.
type RateLimitWindow struct {
	Identifier   string `gorm:"primaryKey;size:128" json:"identifier"`
	WindowStart  int64  `gorm:"primaryKey;autoIncrement:false" json:"windowStart"`
	RequestCount int64  `gorm:"not null;default:0" json:"requestCount"`
	ExpiresAt    int64  `gorm:"not null" json:"expiresAt"`
}

// TableName specifies the table name for GORM
func (RateLimitWindow) TableName() string {
	return "rate_limit_windows"
}

// CreateLinkRequest represents the request payload for creating a short URL
type CreateLinkRequest struct {
	URL              string `json:"url" binding:"required"`
	CustomAlias      string `json:"customAlias,omitempty"`
	ExpiresInSeconds *int64 `json:"expiresInSeconds,omitempty"`
}

// CreateLinkResponse represents the response after creating a short URL
type CreateLinkResponse struct {
	Code        string `json:"code"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	CreatedAt   int64  `json:"createdAt"`
	ExpiresAt   *int64 `json:"expiresAt,omitempty"`
	IsSafe      bool   `json:"isSafe"`
}

// LinkPreview is the public view of a link, returned without recording a click
type LinkPreview struct {
	Code          string `json:"code"`
	ShortURL      string `json:"shortUrl"`
	OriginalURL   string `json:"originalUrl"`
	CreatedAt     int64  `json:"createdAt"`
	ExpiresAt     *int64 `json:"expiresAt,omitempty"`
	ClickCount    int64  `json:"clickCount"`
	IsCustomAlias bool   `json:"isCustomAlias"`
	IsSafe        bool   `json:"isSafe"`
	LastClickedAt *int64 `json:"lastClickedAt,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
