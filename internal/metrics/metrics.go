package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/streamcart/order-pipeline/internal/aws"
)

// Recorder reports observability counters. Emission is best-effort: a metrics
// failure is logged and never propagated into the order flow.
type Recorder interface {
	Count(ctx context.Context, name string)
	Duration(ctx context.Context, name string, d time.Duration)
}

// CloudWatchRecorder publishes metrics under a single namespace.
type CloudWatchRecorder struct {
	client    aws.CloudWatchAPI
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder returns a Recorder backed by CloudWatch.
func NewCloudWatchRecorder(client aws.CloudWatchAPI, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *CloudWatchRecorder) Count(ctx context.Context, name string) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: &name,
		Unit:       cwtypes.StandardUnitCount,
		Value:      awsFloat64(1),
	})
}

func (r *CloudWatchRecorder) Duration(ctx context.Context, name string, d time.Duration) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: &name,
		Unit:       cwtypes.StandardUnitMilliseconds,
		Value:      awsFloat64(float64(d.Milliseconds())),
	})
}

func (r *CloudWatchRecorder) put(ctx context.Context, datum cwtypes.MetricDatum) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &r.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		r.logger.Warn("metric emission failed",
			slog.String("metric", *datum.MetricName),
			slog.String("error", err.Error()))
	}
}

// Nop discards all metrics. Useful in tests and when CloudWatch is not wired.
type Nop struct{}

func (Nop) Count(ctx context.Context, name string) {}

func (Nop) Duration(ctx context.Context, name string, d time.Duration) {}

func awsFloat64(f float64) *float64 { return &f }
