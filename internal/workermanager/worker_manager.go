package workermanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/pkg/worker"
	"github.com/goto/sitesearch/pkg/worker/workermw"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const jobRefreshRegistry = "refresh-registry"

// AdminPrefix is where DeadJobsHandler expects to be mounted.
const AdminPrefix = "/_admin/jobs"

var ErrUnknownRegistry = errors.New("unknown registry")

type Worker interface {
	Register(typ string, h worker.JobHandler) error
	Run(ctx context.Context) error
	Enqueue(ctx context.Context, jobs ...worker.JobSpec) error
}

type Registries interface {
	Get(name string) (*registry.Registry, bool)
	Sizes() map[string]int
}

type Config struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled" default:"true"`
	WorkerCount       int           `yaml:"worker_count" mapstructure:"worker_count" default:"1"`
	PollInterval      time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" default:"500ms"`
	ActivePollPercent float64       `yaml:"active_poll_percent" mapstructure:"active_poll_percent" default:"20"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval" default:"300s"`
	JobTimeout        time.Duration `yaml:"job_timeout" mapstructure:"job_timeout" default:"60s"`
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts" default:"3"`
}

type Deps struct {
	Config     Config
	Registries Registries
	Logger     log.Logger
}

// Manager keeps the entity registries warm by refreshing each of them on a
// background worker every refresh interval.
type Manager struct {
	processor  *worker.MemoryProcessor
	worker     Worker
	registries Registries
	config     Config
	logger     log.Logger
	initDone   atomic.Bool
}

func New(deps Deps) (*Manager, error) {
	cfg := deps.Config
	processor := worker.NewMemoryProcessor()

	w, err := worker.New(
		workermw.WithJobProcessorInstrumentation()(processor),
		worker.WithRunConfig(cfg.WorkerCount, cfg.PollInterval),
		worker.WithActivePollPercent(cfg.ActivePollPercent),
		worker.WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("new worker manager: %w", err)
	}

	m := NewWithWorker(w, deps)
	m.processor = processor
	return m, nil
}

func NewWithWorker(w Worker, deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Manager{
		worker:     w,
		registries: deps.Registries,
		config:     deps.Config,
		logger:     logger,
	}
}

// Run refreshes every registry right away and then every refresh interval
// until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.init(); err != nil {
		return fmt.Errorf("run registry worker: init: %w", err)
	}

	go m.schedule(ctx)
	return m.worker.Run(ctx)
}

// EnqueueRefresh queues one refresh job per registry.
func (m *Manager) EnqueueRefresh(ctx context.Context) error {
	names := registryNames(m.registries)
	specs := make([]worker.JobSpec, 0, len(names))
	for _, name := range names {
		payload, err := json.Marshal(refreshPayload{Registry: name})
		if err != nil {
			return fmt.Errorf("enqueue refresh job: %w", err)
		}
		specs = append(specs, worker.JobSpec{Type: jobRefreshRegistry, Payload: payload})
	}

	if err := m.worker.Enqueue(ctx, specs...); err != nil {
		return fmt.Errorf("enqueue refresh job: %w", err)
	}
	return nil
}

// DeadJobsHandler serves dead job management under AdminPrefix. It is nil
// unless the manager owns its job processor.
func (m *Manager) DeadJobsHandler() http.Handler {
	if m.processor == nil {
		return nil
	}
	return worker.DeadJobManagementHandler(AdminPrefix, m.processor)
}

func (m *Manager) init() error {
	if m.initDone.Swap(true) {
		return nil
	}

	if err := m.worker.Register(jobRefreshRegistry, m.refreshRegistryHandler()); err != nil {
		return err
	}
	return m.registerStatsCallback()
}

func (m *Manager) schedule(ctx context.Context) {
	interval := m.config.RefreshInterval
	if interval <= 0 {
		interval = registry.DefaultCacheLifetime
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.EnqueueRefresh(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("schedule registry refresh", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type refreshPayload struct {
	Registry string `json:"registry"`
}

func (m *Manager) refreshRegistryHandler() worker.JobHandler {
	return worker.JobHandler{
		Handle: func(ctx context.Context, spec worker.JobSpec) error {
			var payload refreshPayload
			if err := json.Unmarshal(spec.Payload, &payload); err != nil {
				return fmt.Errorf("refresh registry: decode payload: %w", err)
			}

			reg, ok := m.registries.Get(payload.Registry)
			if !ok {
				return fmt.Errorf("refresh registry: %w: '%s'", ErrUnknownRegistry, payload.Registry)
			}

			table, err := reg.Refresh(ctx)
			if err != nil {
				return &worker.RetryableError{Cause: fmt.Errorf("refresh registry '%s': %w", payload.Registry, err)}
			}
			m.logger.Debug("registry refreshed", "registry", payload.Registry, "entities", table.Len())
			return nil
		},
		JobOpts: worker.JobOptions{
			MaxAttempts: m.config.MaxAttempts,
			Timeout:     m.config.JobTimeout,
		},
	}
}

func (m *Manager) registerStatsCallback() error {
	const (
		attrJobType  = attribute.Key("job.type")
		attrRegistry = attribute.Key("registry.name")
	)

	meter := otel.Meter("github.com/goto/sitesearch/internal/workermanager")
	activeJobs, err := meter.Int64ObservableGauge("sitesearch.worker.active_jobs")
	handleOtelErr(err)
	deadJobs, err := meter.Int64ObservableGauge("sitesearch.worker.dead_jobs")
	handleOtelErr(err)
	entities, err := meter.Int64ObservableGauge("sitesearch.registry.entities")
	handleOtelErr(err)

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			if m.registries != nil {
				for name, size := range m.registries.Sizes() {
					o.ObserveInt64(entities, int64(size), metric.WithAttributes(attrRegistry.String(name)))
				}
			}
			if m.processor == nil {
				return nil
			}

			stats, err := m.processor.Stats(ctx)
			if err != nil {
				return err
			}
			seen := false
			for _, st := range stats {
				attr := metric.WithAttributes(attrJobType.String(st.Type))
				o.ObserveInt64(activeJobs, int64(st.Active), attr)
				o.ObserveInt64(deadJobs, int64(st.Dead), attr)
				seen = seen || st.Type == jobRefreshRegistry
			}
			if !seen {
				attr := metric.WithAttributes(attrJobType.String(jobRefreshRegistry))
				o.ObserveInt64(activeJobs, 0, attr)
				o.ObserveInt64(deadJobs, 0, attr)
			}
			return nil
		},
		activeJobs,
		deadJobs,
		entities,
	)
	return err
}

func registryNames(r Registries) []string {
	if r == nil {
		return nil
	}
	sizes := r.Sizes()
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func handleOtelErr(err error) {
	if err != nil {
		otel.Handle(err)
	}
}
