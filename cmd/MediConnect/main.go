// Package main starts the MediConnect appointment service: the HTTP API, the
// gRPC health endpoint and the circuit breaker stats reporter.
package main

import (
	"flag"
	"fmt"
	"os"

	"MediConnect/internal/conf"
	zapLogger "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the service name reported to the registry and in every log line.
	Name = zapLogger.ServiceName
	// Version is the version of the compiled software.
	Version string

	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server, reporter *StatsReporter) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{
			"domain": "appointments",
		}),
		kratos.Logger(logger),
		kratos.Server(gs, hs, reporter),
	)
}

func main() {
	flag.Parse()

	if err := run(flagconf); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", Name, err)
		os.Exit(1)
	}
}

// run loads the configuration, builds the application and blocks until a
// stop signal. Deferred cleanups drain in-flight insurance verifications
// before the database and Redis connections close.
func run(path string) error {
	bc, err := conf.NewBootstrap(path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zapLog.Sync() }()

	logger := log.With(zapLogger.NewKratosAdapter(zapLog),
		"service.id", id,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)
	helper := zapLogger.NewLogHelper(logger)

	helper.Startup("Appointment service starting",
		"http.addr", bc.Server.Http.Addr,
		"grpc.addr", bc.Server.Grpc.Addr,
		"db.driver", bc.Data.Database.Driver,
		"redis.enabled", bc.Data.Redis.Addr != "",
		"log.level", bc.Log.Level,
		"log.env", bc.Log.Env,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Services, bc.Insurance, bc.Appointment, logger)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		helper.Errorw("msg", "application stopped with error", "error", err)
		return err
	}
	helper.Startup("Appointment service stopped")
	return nil
}
