package domain

import "time"

const unknownDescription = "Unknown"

// SearchBackend selects the Search Engine Gateway implementation.
type SearchBackend string

// Available search backends.
const (
	// SearchBackendElasticsearch talks to an Elasticsearch cluster over HTTP.
	SearchBackendElasticsearch SearchBackend = "elasticsearch"

	// SearchBackendBleve keeps indices in process memory.
	SearchBackendBleve SearchBackend = "bleve"
)

// IsValid returns true if the backend is recognised.
func (b SearchBackend) IsValid() bool {
	switch b {
	case SearchBackendElasticsearch, SearchBackendBleve:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b SearchBackend) Description() string {
	switch b {
	case SearchBackendElasticsearch:
		return "Elasticsearch (remote cluster)"
	case SearchBackendBleve:
		return "Bleve (embedded, in-memory)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects where the queue, log and index state live.
type StorageBackend string

// Available storage backends.
const (
	StorageBackendSQLite   StorageBackend = "sqlite"
	StorageBackendPostgres StorageBackend = "postgres"
	StorageBackendMemory   StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendSQLite, StorageBackendPostgres, StorageBackendMemory:
		return true
	default:
		return false
	}
}

// ElasticsearchSettings configures the Elasticsearch gateway.
type ElasticsearchSettings struct {
	// Host is the cluster URL, e.g. https://localhost:9200.
	Host string

	// Username and Password enable basic authentication when set.
	Username string
	Password string

	// CACertPath points at a PEM file used as the TLS trust anchor.
	CACertPath string

	// InsecureSkipVerify disables certificate verification.
	InsecureSkipVerify bool

	// Timeout bounds every request. Timeouts surface as ErrConnection.
	Timeout time.Duration
}

// IndexingSettings configures index naming and rebuilds.
type IndexingSettings struct {
	// Alias is the stable name readers and incremental writers use.
	Alias string

	// Prefix is the base of generated index names.
	Prefix string

	// Strategy selects in-place or blue-green rebuilds.
	Strategy RebuildStrategy

	// Workers bounds parallel upserts while indexing a collection.
	Workers int
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Backend     StorageBackend
	DataDir     string
	PostgresDSN string
}

// ContentSettings configures the content-store client.
type ContentSettings struct {
	// BaseURL is the content API root, e.g. http://localhost:1337.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// RateLimit is the maximum number of requests per second. Zero is unlimited.
	RateLimit float64

	// PageSize is the number of records fetched per page.
	PageSize int

	// Timeout bounds every request.
	Timeout time.Duration

	// Endpoints maps a collection to its REST path segment when the two
	// differ ("api::article.article" -> "articles").
	Endpoints map[string]string
}

// Settings is the complete application configuration.
type Settings struct {
	Backend       SearchBackend
	Elasticsearch ElasticsearchSettings
	Indexing      IndexingSettings
	Storage       StorageSettings
	Content       ContentSettings
	Scheduler     SchedulerConfig

	// CollectionsFile is the path of the collection configuration file.
	CollectionsFile string

	// ServerAddr is the listen address of the serve command.
	ServerAddr string

	// WebhookSecret, when set, must be sent as a bearer token to the webhook.
	WebhookSecret string

	// TracingExporter is "none" or "stdout".
	TracingExporter string
}
