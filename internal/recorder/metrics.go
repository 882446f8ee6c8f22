package recorder

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/facecsv/internal/recorder"

type metrics struct {
	frames       metric.Int64Counter
	exports      metric.Int64Counter
	exportedRows metric.Int64Counter
	archiveFails metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.frames, err = m.Int64Counter(
		"recorder.frames",
		metric.WithDescription("Frames sampled, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	out.exports, err = m.Int64Counter(
		"recorder.exports",
		metric.WithDescription("Successful CSV exports"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exports counter: %w", err)
	}

	out.exportedRows, err = m.Int64Counter(
		"recorder.exported.rows",
		metric.WithDescription("Rows written by CSV exports, header included"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exported rows counter: %w", err)
	}

	out.archiveFails, err = m.Int64Counter(
		"recorder.archive.failures",
		metric.WithDescription("Archive backend failures after export"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating archive failures counter: %w", err)
	}

	return out, nil
}

var (
	outcomeAppended  = metric.WithAttributes(attribute.String("outcome", "appended"))
	outcomeDuplicate = metric.WithAttributes(attribute.String("outcome", "duplicate"))
	outcomeSkipped   = metric.WithAttributes(attribute.String("outcome", "skipped"))
)

func (m *metrics) appended()  { m.frames.Add(context.Background(), 1, outcomeAppended) }
func (m *metrics) duplicate() { m.frames.Add(context.Background(), 1, outcomeDuplicate) }
func (m *metrics) skipped()   { m.frames.Add(context.Background(), 1, outcomeSkipped) }

func (m *metrics) exported(rows int) {
	m.exports.Add(context.Background(), 1)
	m.exportedRows.Add(context.Background(), int64(rows))
}

func (m *metrics) archiveFailed(backend string) {
	m.archiveFails.Add(context.Background(), 1, metric.WithAttributes(attribute.String("backend", backend)))
}
