package models

import "scrapebot/internal/constants"

// Platform is the social network a queued URL belongs to
type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformTikTok    Platform = "TikTok"
	PlatformYouTube   Platform = "YouTube"
)

func (p Platform) String() string {
	return string(p)
}

// QueueStatus is the processing state recorded in column E
type QueueStatus string

const (
	StatusPending QueueStatus = constants.StatusPending
)

// QueueHeader is the fixed header written to row 1 of an empty queue.
var QueueHeader = []string{"Timestamp", "URL", "Platform", "Requester", "Status"}

// QueueRow is one submission. Column order is fixed: A timestamp, B url,
// C platform, D requester, E status.
type QueueRow struct {
	Timestamp string
	URL       string
	Platform  Platform
	Requester string
	Status    QueueStatus
}

// Values returns the row in column order for the spreadsheet values API.
func (r QueueRow) Values() []string {
	return []string{r.Timestamp, r.URL, string(r.Platform), r.Requester, string(r.Status)}
}

// URLColumn is the zero-based index of the URL (column B) within a row.
const URLColumn = 1
