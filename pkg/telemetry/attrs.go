package telemetry

import (
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/attribute"
)

type SpanAttributes struct {
	RunID      optional[string] // batchgen.run.id
	OutputDir  optional[string] // batchgen.output.dir
	GenIters   optional[int]    // batchgen.gen_iters
	SeedsSize  optional[int]    // batchgen.seeds_size
	Seed       optional[string] // batchgen.seed
	CaseIndex  optional[int]    // batchgen.case.index
	MaxRetries optional[int]    // batchgen.max_retries

	extraAttributes map[string]any
}

func EmptySpanAttributes() *SpanAttributes {
	return &SpanAttributes{
		extraAttributes: make(map[string]any),
	}
}

// Merge copies fields set in other that are not set in o.
func (o *SpanAttributes) Merge(other *SpanAttributes) {
	if other == nil {
		return
	}

	mergeOptional(&o.RunID, &other.RunID)
	mergeOptional(&o.OutputDir, &other.OutputDir)
	mergeOptional(&o.GenIters, &other.GenIters)
	mergeOptional(&o.SeedsSize, &other.SeedsSize)
	mergeOptional(&o.Seed, &other.Seed)
	mergeOptional(&o.CaseIndex, &other.CaseIndex)
	mergeOptional(&o.MaxRetries, &other.MaxRetries)

	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	for k, v := range other.extraAttributes {
		if _, exists := o.extraAttributes[k]; !exists {
			o.extraAttributes[k] = v
		}
	}
}

func (o *SpanAttributes) WithRunID(val string) *SpanAttributes {
	o.RunID.Set(val)
	return o
}

func (o *SpanAttributes) WithOutputDir(val string) *SpanAttributes {
	o.OutputDir.Set(val)
	return o
}

func (o *SpanAttributes) WithGenIters(val int) *SpanAttributes {
	o.GenIters.Set(val)
	return o
}

func (o *SpanAttributes) WithSeedsSize(val int) *SpanAttributes {
	o.SeedsSize.Set(val)
	return o
}

func (o *SpanAttributes) WithSeed(val string) *SpanAttributes {
	o.Seed.Set(val)
	return o
}

func (o *SpanAttributes) WithCaseIndex(val int) *SpanAttributes {
	o.CaseIndex.Set(val)
	return o
}

func (o *SpanAttributes) WithMaxRetries(val int) *SpanAttributes {
	o.MaxRetries.Set(val)
	return o
}

func (o *SpanAttributes) WithExtraAttributes(attrs map[string]any) *SpanAttributes {
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	maps.Copy(o.extraAttributes, attrs)
	return o
}

func (o SpanAttributes) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if o.RunID.set {
		attrs = append(attrs, attribute.String("batchgen.run.id", o.RunID.val))
	}
	if o.OutputDir.set {
		attrs = append(attrs, attribute.String("batchgen.output.dir", o.OutputDir.val))
	}
	if o.GenIters.set {
		attrs = append(attrs, attribute.Int("batchgen.gen_iters", o.GenIters.val))
	}
	if o.SeedsSize.set {
		attrs = append(attrs, attribute.Int("batchgen.seeds_size", o.SeedsSize.val))
	}
	if o.Seed.set {
		attrs = append(attrs, attribute.String("batchgen.seed", o.Seed.val))
	}
	if o.CaseIndex.set {
		attrs = append(attrs, attribute.Int("batchgen.case.index", o.CaseIndex.val))
	}
	if o.MaxRetries.set {
		attrs = append(attrs, attribute.Int("batchgen.max_retries", o.MaxRetries.val))
	}

	for k, v := range o.extraAttributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	return attrs
}

type EventAttributes []attribute.KeyValue

func NewEventAttributes(attributes map[string]string) EventAttributes {
	attrs := make(EventAttributes, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

type optional[T any] struct {
	val T
	set bool
}

func (o *optional[T]) Set(val T) { o.val = val; o.set = true }

func mergeOptional[T any](target, source *optional[T]) {
	if !target.set && source.set {
		target.val = source.val
		target.set = true
	}
}
