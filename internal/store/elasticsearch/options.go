package elasticsearch

import (
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/goto/sitesearch/pkg/statsd"
)

type ClientOption func(*Client)

func WithClient(cli *elasticsearch.Client) ClientOption {
	return func(c *Client) {
		c.client = cli
	}
}

func WithStatsD(reporter *statsd.Reporter) ClientOption {
	return func(c *Client) {
		c.statsd = reporter
	}
}
