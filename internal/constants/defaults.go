package constants

// Queue layout
const (
	DefaultSheetName       = "Scrape Requests"
	QueueColumnRange       = "A:E"
	QueueHeaderRange       = "A1:E1"
	StatusPending          = "Pending"
	UnknownRequesterName   = "Unknown User"
	QueueTimestampLayout   = "2006-01-02 15:04:05"
	DefaultSlashCommand    = "/add-influencer"
	DefaultCredentialsFile = "credentials.json"
	DefaultQueueDBPath     = "scrapebot.db"
)

// Slack connection modes
const (
	SlackModeSocket = "socket"
	SlackModeHTTP   = "http"
)

// Queue backends
const (
	QueueBackendSheets = "sheets"
	QueueBackendSQLite = "sqlite"
)

// Default server and worker configuration values
const (
	DefaultServerPort            = 8082
	DefaultWorkerPoolSize        = 8
	DefaultReplyRatePerSec       = 1.0
	DefaultReplyRateBurst        = 3
	DefaultReplyMaxRetries       = 3
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultSlackHTTPTimeoutSec   = 10
	MaxSlackRequestBodyBytes     = 1 << 20
)

// Default Google Sheets client values
const (
	DefaultSheetsTimeoutSec      = 30
	DefaultSheetsMaxReadRetries  = 3
	DefaultBreakerMaxFailures    = 5
	DefaultBreakerOpenTimeoutSec = 30
	DefaultBreakerHalfOpenCalls  = 1
)

// Startup retry for the header initializer
const (
	DefaultStartupRetryAttempts  = 3
	DefaultStartupRetryInitialMs = 500
	DefaultStartupRetryMaxMs     = 5000
)

// Privacy settings
const (
	DefaultUserIDMaskLength = 4
	DefaultTokenMaskLength  = 4
)

// At-rest encryption for the local queue store
const (
	EncryptionSalt         = "scrapebot-queue-store-v1"
	MinEncryptionSecretLen = 32
)

// Local queue store retry on SQLITE_BUSY
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultDatabaseRetryMinMs    = 50
	DefaultDatabaseRetryMaxMs    = 500
	DefaultDatabaseBusyTimeoutMs = 5000
)
