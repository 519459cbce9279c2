package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/ratelimit"
	"github.com/uber-go/tally/v4"
	"github.com/uber-go/tally/v4/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/salim16/microservices-kaushik/catalogue/internal/controller/catalogue"
	movieinfogateway "github.com/salim16/microservices-kaushik/catalogue/internal/gateway/movieinfo/http"
	ratingsgateway "github.com/salim16/microservices-kaushik/catalogue/internal/gateway/ratings/http"
	httphandler "github.com/salim16/microservices-kaushik/catalogue/internal/handler/http"
	kafkareporter "github.com/salim16/microservices-kaushik/catalogue/internal/reporter/kafka"
	logreporter "github.com/salim16/microservices-kaushik/catalogue/internal/reporter/log"
	"github.com/salim16/microservices-kaushik/pkg/discovery"
	"github.com/salim16/microservices-kaushik/pkg/discovery/consul"
	"github.com/salim16/microservices-kaushik/pkg/discovery/locator"
	"github.com/salim16/microservices-kaushik/pkg/discovery/static"
	"github.com/salim16/microservices-kaushik/pkg/httpjson"
	"github.com/salim16/microservices-kaushik/pkg/tracing"
)

const serviceName = "catalogue"

func main() {
	configPath := flag.String("config", "./catalogue/configs/base.yaml", "path to the configuration file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.String("path", *configPath), zap.Error(err))
	}
	logger.Info("Starting the catalogue service", zap.Int("port", cfg.API.Port))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Jaeger.URL != "" {
		tp, err := tracing.NewJaegerProvider(cfg.Jaeger.URL, serviceName)
		if err != nil {
			logger.Fatal("Failed to initialize Jaeger provider", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down Jaeger provider", zap.Error(err))
			}
		}()
		otel.SetTracerProvider(tp)
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})

	reporter := prometheus.NewReporter(prometheus.Options{})
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags:           map[string]string{"service": serviceName},
		CachedReporter: reporter,
	}, 10*time.Second)
	defer closer.Close()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", reporter.HTTPHandler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Prometheus.MetricsPort), metricsMux); err != nil {
			logger.Error("Failed to start the metrics handler", zap.Error(err))
		}
	}()
	scope.Counter("service_started").Inc(1)

	hostPort := net.JoinHostPort(cfg.API.Host, fmt.Sprint(cfg.API.Port))
	var lister discovery.Lister
	switch cfg.Registry.Type {
	case "static":
		lister, err = static.New(cfg.Registry.Static)
		if err != nil {
			logger.Fatal("Failed to build static registry", zap.Error(err))
		}
	default:
		registry, err := consul.NewRegistry(cfg.Registry.ConsulAddr)
		if err != nil {
			logger.Fatal("Failed to create consul registry", zap.Error(err))
		}
		instanceID := discovery.GenerateInstanceID(serviceName)
		if err := registry.Register(ctx, instanceID, serviceName, hostPort); err != nil {
			logger.Fatal("Failed to register service", zap.Error(err))
		}
		go reportHealthyState(ctx, registry, instanceID, logger)
		defer func() {
			if err := registry.Deregister(context.Background(), instanceID, serviceName); err != nil {
				logger.Error("Failed to deregister service", zap.Error(err))
			}
		}()
		lister = registry
	}

	loc := locator.New(lister, cfg.Registry.RefreshInterval, logger.Named("locator"),
		cfg.Upstreams.Ratings.ServiceName, cfg.Upstreams.MovieInfo.ServiceName)
	loc.Start(ctx)
	defer loc.Stop()

	client := httpjson.NewClient(cfg.Upstreams.Timeout)
	ratingsGateway := ratingsgateway.New(loc, client, cfg.Upstreams.Ratings.ServiceName, cfg.Upstreams.Retry, logger.Named("ratings"))
	movieInfoGateway := movieinfogateway.New(loc, client, cfg.Upstreams.MovieInfo.ServiceName)

	opts := []catalogue.Option{
		catalogue.WithMaxConcurrency(cfg.Aggregator.MaxConcurrency),
		catalogue.WithMetrics(scope),
		catalogue.WithLogger(logger.Named("controller")),
	}
	if cfg.Kafka.Enabled {
		kr, err := kafkareporter.New(cfg.Kafka.Addr, cfg.Kafka.Topic, logger.Named("kafka"))
		if err != nil {
			logger.Fatal("Failed to create kafka producer", zap.Error(err))
		}
		defer kr.Close(10 * time.Second)
		opts = append(opts, catalogue.WithOmissionReporter(kr))
	} else {
		opts = append(opts, catalogue.WithOmissionReporter(logreporter.New(logger.Named("omissions"))))
	}
	ctrl := catalogue.New(ratingsGateway, movieInfoGateway, opts...)

	h := httphandler.New(ctrl, httphandler.Config{
		RequestTimeout: cfg.API.RequestTimeout,
		RateLimit:      cfg.API.RateLimit,
		Burst:          cfg.API.Burst,
	}, logger.Named("http"), scope)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	healthSrv := health.NewServer()
	var grpcSrv *grpc.Server
	if cfg.API.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.API.GRPCPort))
		if err != nil {
			logger.Fatal("Failed to listen", zap.Error(err))
		}
		const limit = 100
		const burst = 100
		grpcSrv = grpc.NewServer(grpc.ChainUnaryInterceptor(
			otelgrpc.UnaryServerInterceptor(),
			ratelimit.UnaryServerInterceptor(newLimiter(limit, burst)),
		))
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)
		reflection.Register(grpcSrv)
		healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC health server stopped", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s := <-sigChan
		logger.Info("Attempting graceful shutdown", zap.Stringer("signal", s))
		healthSrv.Shutdown()
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down the HTTP server", zap.Error(err))
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		logger.Info("Gracefully stopped the servers")
	}()
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
	wg.Wait()
}

func reportHealthyState(ctx context.Context, registry discovery.Registry, instanceID string, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		if err := registry.ReportHealthyState(instanceID, serviceName); err != nil {
			logger.Error("Failed to report healthy state", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type limiter struct {
	l *rate.Limiter
}

func newLimiter(limit int, burst int) *limiter {
	return &limiter{rate.NewLimiter(rate.Limit(limit), burst)}
}

func (l *limiter) Limit() bool {
	return !l.l.Allow()
}
