package config

// Resolved configuration values from CLI flags, QR_* environment
// variables and the optional config file.
var (
	LogLevel  string // zap log level (debug, info, warn, error)
	LogFormat string // text vs json

	StorageBackend   string // sqlite or postgres
	SQLitePath       string // path to the sqlite archive file
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	ClickHouseEnabled  bool // mirror waypoints into ClickHouse
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	NatsURL       string // NATS server URL for the ingest daemon
	IngestSubject string // subject carrying ingest envelopes
	IngestQueue   string // queue group shared by daemon instances
	ResultSubject string // subject for decode results; empty disables
	MetricsPort   int    // Prometheus /metrics port; 0 disables

	APIPort int      // archive API listen port
	APIAuth bool     // require an API key
	APIKeys []string // accepted API keys
)
