// Command flowgated runs the streaming gateway: it wires together a
// records-storage backend, a positions-storage backend, the processor
// chains, and the gRPC transport, then serves until it receives a
// termination signal.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/twmb/flowgate/internal/config"
	"github.com/twmb/flowgate/internal/logging"
	"github.com/twmb/flowgate/internal/metrics"
	transportgrpc "github.com/twmb/flowgate/internal/transport/grpc"
	"github.com/twmb/flowgate/pkg/codec"
	"github.com/twmb/flowgate/pkg/gateway"
	"github.com/twmb/flowgate/pkg/storage"
	"github.com/twmb/flowgate/pkg/storage/boltpositions"
	"github.com/twmb/flowgate/pkg/storage/kafkastorage"
	"github.com/twmb/flowgate/pkg/storage/memstorage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON/TOML config file")
	flag.Parse()

	log := logging.NewZerolog()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Log(logging.LevelError, "load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Log(logging.LevelError, "invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Logging.Level != "" {
		if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			log.L = log.L.Level(lvl)
		}
	}

	records, closeRecords, err := buildRecordsStorage(cfg)
	if err != nil {
		log.Log(logging.LevelError, "build records storage", "error", err)
		os.Exit(1)
	}
	defer closeRecords()

	positions, closePositions, err := buildPositionsStorage(cfg)
	if err != nil {
		log.Log(logging.LevelError, "build positions storage", "error", err)
		os.Exit(1)
	}
	defer closePositions()

	preProcessors, postProcessors, err := buildProcessorChains(cfg)
	if err != nil {
		log.Log(logging.LevelError, "build processor chains", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	hooks := metrics.NewHooks(reg)

	gw := gateway.New(records, positions,
		gateway.WithLogger(log),
		gateway.WithHooks(hooks),
		gateway.WithPreProcessors(preProcessors...),
		gateway.WithPostProcessors(postProcessors...),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.ListenAddr, reg, log)
	}

	if err := serveGRPC(ctx, cfg.Server.ListenAddr, gw, log); err != nil {
		log.Log(logging.LevelError, "serve grpc", "error", err)
		os.Exit(1)
	}
}

func buildRecordsStorage(cfg *config.Config) (storage.RecordsStorage, func(), error) {
	switch cfg.Storage.RecordsBackend {
	case "kafka":
		store := kafkastorage.New(cfg.Kafka.Brokers)
		return store, store.Close, nil
	default:
		store := memstorage.New(cfg.Storage.PartitionCount)
		return store, func() {}, nil
	}
}

func buildPositionsStorage(cfg *config.Config) (storage.PositionsStorage, func(), error) {
	switch cfg.Storage.PositionsBackend {
	case "bolt":
		store, err := boltpositions.Open(cfg.Storage.PositionsBoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		store := memstorage.New(cfg.Storage.PartitionCount)
		return store, func() {}, nil
	}
}

func buildProcessorChains(cfg *config.Config) ([]gateway.PreProcessor, []gateway.PostProcessor, error) {
	switch cfg.Codec.Compression {
	case "snappy":
		return []gateway.PreProcessor{codec.Snappy{}},
			[]gateway.PostProcessor{codec.Decompressor{Decode: codec.DecodeSnappy}}, nil
	case "lz4":
		return []gateway.PreProcessor{codec.LZ4{}},
			[]gateway.PostProcessor{codec.Decompressor{Decode: codec.DecodeLZ4}}, nil
	case "zstd":
		z, err := codec.NewZstd()
		if err != nil {
			return nil, nil, err
		}
		return []gateway.PreProcessor{z},
			[]gateway.PostProcessor{codec.Decompressor{Decode: z.Decode}}, nil
	default:
		return nil, nil, nil
	}
}

func serveGRPC(ctx context.Context, addr string, gw *gateway.Gateway, log logging.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := grpc.NewServer()
	transportgrpc.RegisterServer(server, &transportgrpc.Server{Gateway: gw})

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	log.Log(logging.LevelInfo, "grpc server listening", "addr", addr)
	return server.Serve(lis)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Log(logging.LevelInfo, "metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Log(logging.LevelError, "metrics server", "error", err)
	}
}
