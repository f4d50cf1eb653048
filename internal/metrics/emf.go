// Package metrics writes generation latency and outcomes as CloudWatch
// Embedded Metric Format lines. Nothing is written until Enable.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const Namespace = "ToonNation"

const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder collects one operation's metrics. Use one per operation.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]interface{}
	properties map[string]interface{}
}

// mu guards the sink and every write to it.
var (
	mu     sync.Mutex
	sink   io.Writer
	binary string
)

// Enable routes flushed documents to w and tags every document with the
// Binary dimension.
func Enable(w io.Writer, binaryName string) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
	binary = binaryName
}

// Disable stops all output. Flush becomes a no-op.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	sink = nil
	binary = ""
}

// New starts a recorder. The Binary dimension is added when set by Enable.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]interface{}),
		properties: make(map[string]interface{}),
	}
	mu.Lock()
	if binary != "" {
		r.dimensions["Binary"] = binary
	}
	mu.Unlock()
	return r
}

func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric sets a value; recording the same name twice keeps the last one.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records 1 with UnitCount.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a searchable field that is not a metric.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as one JSON line. Recorders are single use.
func (r *Recorder) Flush() {
	mu.Lock()
	defer mu.Unlock()
	if sink == nil || len(r.metrics) == 0 {
		return
	}
	data, err := json.Marshal(r.document(time.Now()))
	if err != nil {
		log.Warn().Err(err).Str("namespace", r.namespace).Msg("Dropping unencodable metrics")
		return
	}
	data = append(data, '\n')
	if _, err := sink.Write(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics")
	}
}

// document lays out the EMF document: the _aws directive followed by
// dimension, metric and property fields at the top level. Later fields win
// on a name clash.
func (r *Recorder) document(now time.Time) map[string]interface{} {
	dimKeys := slices.Sorted(maps.Keys(r.dimensions))
	defs := make([]metricDef, 0, len(r.metrics))
	for _, name := range slices.Sorted(maps.Keys(r.metrics)) {
		defs = append(defs, r.metrics[name])
	}

	doc := make(map[string]interface{}, 1+len(r.dimensions)+len(r.values)+len(r.properties))
	for _, fields := range []map[string]interface{}{r.properties, r.values} {
		maps.Copy(doc, fields)
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	doc["_aws"] = emfDirective{
		Timestamp: now.UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}
	return doc
}
