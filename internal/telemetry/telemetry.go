package telemetry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
)

const ServiceName = "distributed-ledger"

type Config struct {
	// CollectorEndpoint адрес OTLP коллектора (host:port). Пустой адрес отключает экспорт:
	// метрики продолжают собираться, но никуда не отправляются.
	CollectorEndpoint string
	ServiceVersion    string
}

// NewMeterProvider создает провайдер метрик. Возвращенный провайдер нужно закрыть через Shutdown.
func NewMeterProvider(ctx context.Context, cfg Config, logger *logrus.Logger) (*sdkmetric.MeterProvider, error) {
	res := sdkresource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.CollectorEndpoint == "" {
		logger.Warn("metrics exporter is not configured, metrics stay in-process")
		return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res)), nil
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("[telemetry] create metric exporter: %w", err)
	}

	logger.WithField("endpoint", cfg.CollectorEndpoint).Info("metrics exporter initialized")

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	), nil
}
