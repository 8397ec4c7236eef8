package workermw

import (
	"context"
	"sort"
	"time"

	"github.com/goto/sitesearch/pkg/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	enqueueDurnHistogram    = "sitesearch.worker.jobs.enqueue.duration"
	dequeueLatencyHistogram = "sitesearch.worker.job.dequeue.latency"
	processDurnHistogram    = "sitesearch.worker.job.process.duration"
)

const (
	attrJobTypes     = attribute.Key("job.types")
	attrJobType      = attribute.Key("job.type")
	attrOpSuccess    = attribute.Key("operation.success")
	attrJobAttemptNo = attribute.Key("job.attempt_number")
	attrJobStatus    = attribute.Key("job.status")
)

// JobProcessorInstrumentation records enqueue and processing durations of
// the wrapped processor, plus how long ready jobs waited to be picked up.
type JobProcessorInstrumentation struct {
	next worker.JobProcessor

	enqueueDurn    metric.Float64Histogram
	dequeueLatency metric.Float64Histogram
	processDurn    metric.Float64Histogram
}

func WithJobProcessorInstrumentation() func(worker.JobProcessor) worker.JobProcessor {
	meter := otel.Meter("github.com/goto/sitesearch/pkg/worker/workermw")

	enqueueDurn, err := meter.Float64Histogram(enqueueDurnHistogram, metric.WithUnit("ms"))
	handleOtelErr(err)
	dequeueLatency, err := meter.Float64Histogram(dequeueLatencyHistogram, metric.WithUnit("ms"))
	handleOtelErr(err)
	processDurn, err := meter.Float64Histogram(processDurnHistogram, metric.WithUnit("ms"))
	handleOtelErr(err)

	return func(next worker.JobProcessor) worker.JobProcessor {
		return JobProcessorInstrumentation{
			next:           next,
			enqueueDurn:    enqueueDurn,
			dequeueLatency: dequeueLatency,
			processDurn:    processDurn,
		}
	}
}

func (mw JobProcessorInstrumentation) Enqueue(ctx context.Context, jobs ...worker.Job) (err error) {
	defer func(start time.Time) {
		mw.enqueueDurn.Record(ctx, millis(time.Since(start)), metric.WithAttributes(
			attrJobTypes.StringSlice(jobTypes(jobs)),
			attrOpSuccess.Bool(err == nil),
		))
	}(time.Now())

	return mw.next.Enqueue(ctx, jobs...)
}

func (mw JobProcessorInstrumentation) Process(ctx context.Context, types []string, fn worker.JobExecutorFunc) error {
	return mw.next.Process(ctx, types, func(ctx context.Context, job worker.Job) (result worker.Job) {
		start := time.Now()
		mw.dequeueLatency.Record(ctx, millis(start.Sub(job.RunAt)), metric.WithAttributes(
			attrJobType.String(job.Type),
		))
		defer func() {
			mw.processDurn.Record(ctx, millis(time.Since(start)), metric.WithAttributes(
				attrJobType.String(job.Type),
				attrJobAttemptNo.Int(result.AttemptsDone),
				attrJobStatus.String(jobStatus(result)),
				attrOpSuccess.Bool(result.Status == worker.StatusDone),
			))
		}()
		return fn(ctx, job)
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func jobTypes(jobs []worker.Job) []string {
	types := make([]string, 0, len(jobs))
	for _, j := range jobs {
		types = append(types, j.Type)
	}
	sort.Strings(types)
	return types
}

func jobStatus(j worker.Job) string {
	if j.Status == worker.StatusPending {
		return "retry"
	}
	return string(j.Status)
}

func handleOtelErr(err error) {
	if err != nil {
		otel.Handle(err)
	}
}
