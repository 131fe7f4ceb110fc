package server

import (
	nethttp "net/http"

	"MediConnect/internal/biz"
	"MediConnect/internal/conf"
	"MediConnect/internal/model"
	"MediConnect/internal/server/middleware"
	"MediConnect/internal/service"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/handlers"
)

// accessPolicy lists the roles of each protected operation.
func accessPolicy() middleware.Policy {
	return middleware.Policy{
		service.OperationCreateAppointment:        {model.RolePatient, model.RoleDoctor, model.RoleAdmin},
		service.OperationGetAppointment:           nil,
		service.OperationListPatientAppointments:  nil,
		service.OperationListUpcomingAppointments: nil,
		service.OperationListDoctorAppointments:   nil,
		service.OperationUpdateAppointmentStatus:  nil,
		service.OperationDeleteAppointment:        {model.RoleAdmin},
		service.OperationCircuitBreakerStats:      {model.RoleAdmin},
	}
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, appointment *service.AppointmentService, auth *biz.AuthUsecase, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
			middleware.Authenticate(auth, accessPolicy(), logHelper),
		),
		http.Filter(
			securityHeaders,
			handlers.CORS(
				handlers.AllowedOrigins([]string{"*"}),
				handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
				handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
			),
		),
		http.ResponseEncoder(encodeResponse),
		http.ErrorEncoder(encodeError),
		http.NotFoundHandler(nethttp.HandlerFunc(notFound)),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Http.Timeout))
	}
	srv := http.NewServer(opts...)

	srv.HandleFunc("/health", health)
	service.RegisterAppointmentHTTPServer(srv, appointment)

	return srv
}
