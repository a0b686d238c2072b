// Package elastic implements driven.SearchGateway on Elasticsearch using
// github.com/olivere/elastic/v7.
//
// Sniffing and background health checks are disabled: the gateway talks to
// the configured endpoint only, and reachability is reported by Ping.
package elastic

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Ensure Gateway implements the interface.
var _ driven.SearchGateway = (*Gateway)(nil)

// Config holds the connection settings.
type Config struct {
	Host     string
	Username string
	Password string

	// CACert is a PEM bundle used as the TLS trust anchor.
	CACert []byte

	InsecureSkipVerify bool
	Timeout            time.Duration

	// Mapping is applied to every index the gateway creates.
	Mapping domain.IndexMapping
}

// ConfigFromSettings builds a Config, reading the CA certificate file if set.
func ConfigFromSettings(s domain.ElasticsearchSettings, mapping domain.IndexMapping) (Config, error) {
	cfg := Config{
		Host:               s.Host,
		Username:           s.Username,
		Password:           s.Password,
		InsecureSkipVerify: s.InsecureSkipVerify,
		Timeout:            s.Timeout,
		Mapping:            mapping,
	}
	if s.CACertPath != "" {
		pem, err := os.ReadFile(s.CACertPath)
		if err != nil {
			return Config{}, fmt.Errorf("%w: reading CA certificate: %w", domain.ErrConfiguration, err)
		}
		cfg.CACert = pem
	}
	return cfg, nil
}

// Gateway is the stateful Elasticsearch client shared by the core services.
type Gateway struct {
	client  *elastic.Client
	host    string
	timeout time.Duration
	mapping domain.IndexMapping
	log     *logrus.Entry
}

// Connect builds the client. It does not verify connectivity.
func Connect(cfg Config) (*Gateway, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.Host),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
		elastic.SetHttpClient(httpClient),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	return &Gateway{
		client:  client,
		host:    cfg.Host,
		timeout: timeout,
		mapping: cfg.Mapping,
		log:     logger.For("elasticsearch"),
	}, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return nil, fmt.Errorf("%w: CA certificate contains no PEM certificates", domain.ErrConfiguration)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport}, nil
}

// withTimeout derives the per-request context.
func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// classify wraps err with ErrConnection when the cluster could not be
// reached, and with kind otherwise.
func classify(kind, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func isConnectionError(err error) bool {
	if elastic.IsConnErr(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, elastic.ErrNoClient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Ping reports whether the cluster answers.
func (g *Gateway) Ping(ctx context.Context) bool {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, code, err := g.client.Ping(g.host).Do(ctx)
	if err != nil {
		g.log.WithError(err).Warn("could not connect to Elasticsearch")
		return false
	}
	return code >= 200 && code < 300
}

// IndexExists reports whether a concrete index exists.
func (g *Gateway) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	exists, err := g.client.IndexExists(name).Do(ctx)
	if err != nil {
		return false, classify(domain.ErrIndexCreation, err)
	}
	return exists, nil
}

// CreateIndex creates the index with the mapping unless it already exists.
func (g *Gateway) CreateIndex(ctx context.Context, name string) error {
	exists, err := g.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	g.log.WithField("index", name).Info("search index does not exist, creating it")

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	res, err := g.client.CreateIndex(name).BodyJson(g.mapping).Do(ctx)
	if err != nil {
		return classify(domain.ErrIndexCreation, err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("%w: create %s not acknowledged", domain.ErrIndexCreation, name)
	}
	return nil
}

// DeleteIndex removes an index. Failures are logged and reported, never returned.
func (g *Gateway) DeleteIndex(ctx context.Context, name string) domain.CleanupResult {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	result := domain.CleanupResult{Index: name}
	if _, err := g.client.DeleteIndex(name).Do(ctx); err != nil {
		if elastic.IsNotFound(err) {
			result.Err = fmt.Errorf("%w: index %s", domain.ErrNotFound, name)
		} else {
			result.Err = classify(domain.ErrIndexWrite, err)
		}
		g.log.WithError(result.Err).WithField("index", name).Warn("error while deleting index")
		return result
	}
	result.Deleted = true
	return result
}

// AttachAlias points alias at target, creating target when missing. The
// detach from every other index and the attach run as one _aliases call.
func (g *Gateway) AttachAlias(ctx context.Context, alias, target string) error {
	if err := g.CreateIndex(ctx, target); err != nil {
		return err
	}

	current, err := g.AliasTargets(ctx, alias)
	if err != nil {
		return err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	svc := g.client.Alias()
	if len(current) > 0 {
		g.log.WithField("alias", alias).Info("alias already exists, moving it")
		svc = svc.Action(elastic.NewAliasRemoveAction(alias).Index(current...))
	}
	svc = svc.Action(elastic.NewAliasAddAction(alias).Index(target))

	res, err := svc.Do(ctx)
	if err != nil {
		return classify(domain.ErrAlias, err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("%w: alias %s -> %s not acknowledged", domain.ErrAlias, alias, target)
	}
	g.log.WithFields(logrus.Fields{"alias": alias, "index": target}).Info("alias attached")
	return nil
}

// AliasTargets returns the indices alias resolves to; none when it does not exist.
func (g *Gateway) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	res, err := g.client.Aliases().Alias(alias).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify(domain.ErrAlias, err)
	}
	return res.IndicesByAlias(alias), nil
}

// UpsertDocument indexes doc under id, then refreshes the index.
func (g *Gateway) UpsertDocument(ctx context.Context, index, id string, doc domain.IndexedDocument) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if _, err := g.client.Index().Index(index).Id(id).BodyJson(doc).Do(ctx); err != nil {
		g.log.WithError(err).WithField("id", id).Error("error while indexing document")
		return classify(domain.ErrIndexWrite, err)
	}
	if _, err := g.client.Refresh(index).Do(ctx); err != nil {
		return classify(domain.ErrIndexWrite, err)
	}
	return nil
}

// DeleteDocument removes id, then refreshes the index. A missing document
// returns false and no error.
func (g *Gateway) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if _, err := g.client.Delete().Index(index).Id(id).Do(ctx); err != nil {
		if elastic.IsNotFound(err) {
			g.log.WithField("id", id).Info("the entry to be removed from the index already does not exist")
			return false, nil
		}
		return false, classify(domain.ErrIndexWrite, err)
	}
	if _, err := g.client.Refresh(index).Do(ctx); err != nil {
		return true, classify(domain.ErrIndexWrite, err)
	}
	return true, nil
}

// Search runs a read-only query. A raw Body takes precedence over Text.
func (g *Gateway) Search(ctx context.Context, index string, query domain.SearchQuery) (*domain.SearchResult, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	svc := g.client.Search(index)
	if query.Body != nil {
		svc = svc.Source(query.Body)
	} else {
		svc = svc.Query(elastic.NewMultiMatchQuery(query.Text, query.Fields...)).From(query.From)
		if query.Size > 0 {
			svc = svc.Size(query.Size)
		}
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, classify(domain.ErrQuery, err)
	}

	out := &domain.SearchResult{Total: res.TotalHits()}
	if res.Hits == nil {
		return out, nil
	}
	for _, hit := range res.Hits.Hits {
		h := domain.SearchHit{ID: hit.Id, Index: hit.Index}
		if hit.Score != nil {
			h.Score = *hit.Score
		}
		if len(hit.Source) > 0 {
			if err := json.Unmarshal(hit.Source, &h.Source); err != nil {
				return nil, fmt.Errorf("%w: decoding hit %s: %w", domain.ErrQuery, hit.Id, err)
			}
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

// Close stops the client's background goroutines.
func (g *Gateway) Close() error {
	g.client.Stop()
	return nil
}
