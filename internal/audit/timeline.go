package audit

import "time"

// TimelineFilters menampung filter dasar untuk riwayat login.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	UserID   string
	Role     string
	Page     int
	PageSize int
}

// TimelineRow mewakili satu baris riwayat login.
type TimelineRow struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LoginTime time.Time `json:"loginTime"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// PagingInfo menyimpan metadata pagination sederhana.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"hasNext"`
	PageSize int  `json:"pageSize"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// TimelineParams is the repository query for one page.
type TimelineParams struct {
	From   time.Time
	To     time.Time
	UserID string
	Role   string
	Offset int
	Limit  int
}
