package service

import (
	"context"
	nethttp "net/http"

	"MediConnect/internal/biz"
	"MediConnect/internal/data"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-playground/validator/v10"
)

// AppointmentService exposes the appointment usecase over HTTP.
type AppointmentService struct {
	uc       *biz.AppointmentUsecase
	validate *validator.Validate
	logger   *log.Helper
}

// NewAppointmentService creates a new AppointmentService instance.
func NewAppointmentService(uc *biz.AppointmentUsecase, logger log.Logger) *AppointmentService {
	return &AppointmentService{
		uc:       uc,
		validate: newValidator(),
		logger:   log.NewHelper(log.With(logger, "module", "service/appointment")),
	}
}

// CreateAppointment books a new appointment.
func (s *AppointmentService) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*data.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	in, err := req.toBiz()
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("msg", "CreateAppointment called", "patient_id", req.PatientID, "doctor_id", req.DoctorID)
	appt, err := s.uc.CreateAppointment(ctx, in)
	if err != nil {
		s.logger.Warnw("msg", "failed to create appointment", "patient_id", req.PatientID, "error", err)
		return nil, err
	}
	pkglog.SetMetadata(ctx, "appointment_id", appt.ID)
	return appt, nil
}

// GetAppointment returns one appointment.
func (s *AppointmentService) GetAppointment(ctx context.Context, req *AppointmentIDRequest) (*data.Appointment, error) {
	pkglog.SetMetadata(ctx, "appointment_id", req.ID)
	return s.uc.GetAppointment(ctx, req.ID)
}

// ListPatientAppointments returns every appointment of a patient.
func (s *AppointmentService) ListPatientAppointments(ctx context.Context, req *PatientRequest) ([]*data.Appointment, error) {
	return s.uc.ListPatientAppointments(ctx, req.PatientID)
}

// ListUpcomingAppointments returns the scheduled appointments of a patient in the look-ahead window.
func (s *AppointmentService) ListUpcomingAppointments(ctx context.Context, req *PatientRequest) ([]*data.Appointment, error) {
	return s.uc.ListUpcomingAppointments(ctx, req.PatientID)
}

// ListDoctorAppointments returns every appointment of a doctor.
func (s *AppointmentService) ListDoctorAppointments(ctx context.Context, req *DoctorRequest) ([]*data.Appointment, error) {
	return s.uc.ListDoctorAppointments(ctx, req.DoctorID)
}

// UpdateAppointmentStatus moves an appointment to a new status.
func (s *AppointmentService) UpdateAppointmentStatus(ctx context.Context, req *UpdateStatusRequest) (*data.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	pkglog.SetMetadata(ctx, "appointment_id", req.ID)
	appt, err := s.uc.UpdateAppointmentStatus(ctx, req.ID, req.toBiz())
	if err != nil {
		s.logger.Warnw("msg", "failed to update appointment status", "appointment_id", req.ID, "error", err)
		return nil, err
	}
	return appt, nil
}

// DeleteAppointment removes an appointment.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, req *AppointmentIDRequest) error {
	pkglog.SetMetadata(ctx, "appointment_id", req.ID)
	return s.uc.DeleteAppointment(ctx, req.ID)
}

// CircuitBreakerStats reports the insurance circuit breaker.
func (s *AppointmentService) CircuitBreakerStats(_ context.Context, _ *StatsRequest) (*biz.CircuitBreakerStats, error) {
	return s.uc.InsuranceCircuitBreakerStats(), nil
}

// RegisterAppointmentHTTPServer mounts the appointment routes on s.
// The metrics route is registered ahead of /{id} so it is not shadowed.
func RegisterAppointmentHTTPServer(s *http.Server, srv *AppointmentService) {
	r := s.Route("/api/appointments")
	r.POST("", _Appointment_CreateAppointment0_HTTP_Handler(srv))
	r.GET("/metrics/circuit-breaker", _Appointment_CircuitBreakerStats0_HTTP_Handler(srv))
	r.GET("/patient/{patientId}/upcoming", _Appointment_ListUpcomingAppointments0_HTTP_Handler(srv))
	r.GET("/patient/{patientId}", _Appointment_ListPatientAppointments0_HTTP_Handler(srv))
	r.GET("/doctor/{doctorId}", _Appointment_ListDoctorAppointments0_HTTP_Handler(srv))
	r.PATCH("/{id}/status", _Appointment_UpdateAppointmentStatus0_HTTP_Handler(srv))
	r.GET("/{id}", _Appointment_GetAppointment0_HTTP_Handler(srv))
	r.DELETE("/{id}", _Appointment_DeleteAppointment0_HTTP_Handler(srv))
}

// Request bodies are decoded inside the middleware chain so that
// authentication is checked before the payload.

func _Appointment_CreateAppointment0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreateAppointmentRequest
		http.SetOperation(ctx, OperationCreateAppointment)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			if err := ctx.Bind(&in); err != nil {
				return nil, err
			}
			return srv.CreateAppointment(c, &in)
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusCreated, out)
	}
}

func _Appointment_GetAppointment0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := AppointmentIDRequest{ID: ctx.Vars().Get("id")}
		http.SetOperation(ctx, OperationGetAppointment)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return srv.GetAppointment(c, req.(*AppointmentIDRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func _Appointment_ListPatientAppointments0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := PatientRequest{PatientID: ctx.Vars().Get("patientId")}
		http.SetOperation(ctx, OperationListPatientAppointments)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return srv.ListPatientAppointments(c, req.(*PatientRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func _Appointment_ListUpcomingAppointments0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := PatientRequest{PatientID: ctx.Vars().Get("patientId")}
		http.SetOperation(ctx, OperationListUpcomingAppointments)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return srv.ListUpcomingAppointments(c, req.(*PatientRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func _Appointment_ListDoctorAppointments0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := DoctorRequest{DoctorID: ctx.Vars().Get("doctorId")}
		http.SetOperation(ctx, OperationListDoctorAppointments)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return srv.ListDoctorAppointments(c, req.(*DoctorRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func _Appointment_UpdateAppointmentStatus0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in UpdateStatusRequest
		http.SetOperation(ctx, OperationUpdateAppointmentStatus)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			if err := ctx.Bind(&in); err != nil {
				return nil, err
			}
			in.ID = ctx.Vars().Get("id")
			return srv.UpdateAppointmentStatus(c, &in)
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func _Appointment_DeleteAppointment0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := AppointmentIDRequest{ID: ctx.Vars().Get("id")}
		http.SetOperation(ctx, OperationDeleteAppointment)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return nil, srv.DeleteAppointment(c, req.(*AppointmentIDRequest))
		})
		if _, err := h(ctx, &in); err != nil {
			return err
		}
		// 204 carries no body, so the status is written straight through
		ctx.Response().WriteHeader(nethttp.StatusNoContent)
		return nil
	}
}

func _Appointment_CircuitBreakerStats0_HTTP_Handler(srv *AppointmentService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in StatsRequest
		http.SetOperation(ctx, OperationCircuitBreakerStats)
		h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
			return srv.CircuitBreakerStats(c, req.(*StatsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}
