package server

import (
	"MediConnect/internal/conf"
	"MediConnect/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// InsuranceHealthService is the health service name that follows the
// insurance circuit breaker.
const InsuranceHealthService = "mediconnect.insurance"

// insuranceHealth reports NOT_SERVING for the insurance dependency while the
// breaker is open. The overall service status is left untouched.
type insuranceHealth struct {
	health *grpchealth.Server
	logger *log.Helper
}

func (h *insuranceHealth) OnStateChange(_ string, _, to breaker.State) {
	status := healthpb.HealthCheckResponse_SERVING
	if to == breaker.StateOpen {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(InsuranceHealthService, status)
	h.logger.Infow("msg", "insurance health updated", "state", to, "status", status.String())
}

// NewGRPCServer new a gRPC server exposing grpc.health.v1.Health.
func NewGRPCServer(c *conf.Server, cb *breaker.Breaker, logger log.Logger) *grpc.Server {
	var opts = []grpc.ServerOption{
		grpc.Middleware(
			recovery.Recovery(),
		),
		grpc.CustomHealth(),
	}
	if c.Grpc.Network != "" {
		opts = append(opts, grpc.Network(c.Grpc.Network))
	}
	if c.Grpc.Addr != "" {
		opts = append(opts, grpc.Address(c.Grpc.Addr))
	}
	if c.Grpc.Timeout > 0 {
		opts = append(opts, grpc.Timeout(c.Grpc.Timeout))
	}
	srv := grpc.NewServer(opts...)

	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ih := &insuranceHealth{
		health: hs,
		logger: log.NewHelper(log.With(logger, "module", "server/grpc")),
	}
	ih.OnStateChange(cb.Name(), breaker.StateUnknown, cb.State())
	cb.Subscribe(ih)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}
