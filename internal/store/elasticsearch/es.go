package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/pkg/statsd"
	"github.com/newrelic/go-agent/v3/integrations/nrelasticsearch-v7"
)

// supportedVersions is the range of cluster versions the query payloads
// are written for.
const supportedVersions = ">= 7.0.0, < 8.0.0"

type Config struct {
	Brokers        string        `yaml:"brokers" mapstructure:"brokers" default:"http://localhost:9200"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" default:"10s"`
}

// SearchError is returned when the cluster fails or rejects a request.
type SearchError struct {
	Op     string
	Index  string
	ESCode string
	Err    error
}

func (err SearchError) Error() string {
	var s strings.Builder
	s.WriteString("elasticsearch: ")
	if err.Op != "" {
		s.WriteString(err.Op + ": ")
	}
	if err.Index != "" {
		s.WriteString("index '" + err.Index + "': ")
	}
	if err.ESCode != "" {
		s.WriteString("code '" + err.ESCode + "': ")
	}
	s.WriteString(err.Err.Error())
	return s.String()
}

func (err SearchError) Unwrap() error { return err.Err }

// errorCodeAndReason extracts the error type and reason from an error
// response. The raw body is returned as the reason when it is not JSON.
func errorCodeAndReason(res *esapi.Response) (code, reason string) {
	var (
		response struct {
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		}
		raw bytes.Buffer
	)
	if err := json.NewDecoder(io.TeeReader(res.Body, &raw)).Decode(&response); err != nil {
		return "", fmt.Sprintf("status %d, raw response = %s", res.StatusCode, raw.String())
	}
	if response.Error.Reason == "" {
		return response.Error.Type, res.Status()
	}
	return response.Error.Type, response.Error.Reason
}

// drainBody reads the remaining body so that the connection can be reused.
func drainBody(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

type Client struct {
	client  *elasticsearch.Client
	logger  log.Logger
	statsd  *statsd.Reporter
	timeout time.Duration
}

func NewClient(logger log.Logger, config Config, opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger:  logger,
		timeout: config.RequestTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client != nil {
		return c, nil
	}

	brokers := strings.Split(config.Brokers, ",")
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: brokers,
		Transport: nrelasticsearch.NewRoundTripper(nil),
	})
	if err != nil {
		return nil, err
	}
	c.client = esClient

	return c, nil
}

// Init checks that the cluster is reachable and runs a supported version.
func (c *Client) Init() (string, error) {
	res, err := c.client.Info()
	if err != nil {
		return "", SearchError{Op: "Info", Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return "", SearchError{Op: "Info", ESCode: code, Err: fmt.Errorf("%s", reason)}
	}

	var info struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode cluster info: %w", err)
	}

	if err := checkVersion(info.Version.Number); err != nil {
		return "", err
	}
	return fmt.Sprintf("%q (server version %s)", info.ClusterName, info.Version.Number), nil
}

func checkVersion(number string) error {
	v, err := semver.NewVersion(number)
	if err != nil {
		return fmt.Errorf("parse server version %q: %w", number, err)
	}
	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("unsupported elasticsearch version %s, need %s", number, supportedVersions)
	}
	return nil
}

// Ping reports whether the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return SearchError{Op: "Ping", Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return SearchError{Op: "Ping", Err: fmt.Errorf("%s", res.Status())}
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// instrumentOp publishes the latency and outcome of one cluster request.
func (c *Client) instrumentOp(op string, start time.Time, err error) {
	m := c.statsd.Timing("elasticsearch."+op, time.Since(start))
	if err != nil {
		m = m.Failure(err)
	} else {
		m = m.Success()
	}
	m.Publish()
}
