package statsd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goto/salt/log"
)

// Metric is a statsd metric being tagged before it is published. All
// methods accept a nil Metric, which publishes nothing.
type Metric struct {
	logger        log.Logger
	name          string
	rate          float64
	tags          map[string]string
	withInfluxTag bool
	publishFunc   func(name string, tags []string, rate float64) error
}

func (m *Metric) Success() *Metric {
	return m.Tag("success", "true")
}

func (m *Metric) Failure(err error) *Metric {
	return m.Tag("success", "false")
}

func (m *Metric) Tag(key, val string) *Metric {
	if m == nil {
		return nil
	}
	if m.tags == nil {
		m.tags = map[string]string{}
	}
	m.tags[key] = val
	return m
}

// Publish sends the metric in the background. Intended to be used with
// defer.
func (m *Metric) Publish() {
	if m == nil {
		return
	}

	name, tags := m.render()
	go func() {
		if err := m.publishFunc(name, tags, m.rate); err != nil {
			m.logger.Warn("failed to publish metric", "name", name, "err", err)
		}
	}()
}

// render returns the metric name and tags in the configured format. Influx
// style appends the tags to the name in key order.
func (m *Metric) render() (string, []string) {
	keys := make([]string, 0, len(m.tags))
	for k := range m.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if m.withInfluxTag {
		var sb strings.Builder
		sb.WriteString(m.name)
		for _, k := range keys {
			fmt.Fprintf(&sb, ",%s=%s", k, m.tags[k])
		}
		return sb.String(), nil
	}

	tags := make([]string, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, k+":"+m.tags[k])
	}
	return m.name, tags
}
