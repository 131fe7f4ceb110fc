package server

import (
	nethttp "net/http"

	"MediConnect/internal/biz"

	"github.com/go-kratos/kratos/v2/encoding"
	"github.com/go-kratos/kratos/v2/encoding/json"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	reasonInternal  = "INTERNAL_SERVER_ERROR"
	messageInternal = "An unexpected error occurred"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the body of every JSON response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, body envelope) error {
	data, err := encoding.GetCodec(json.Name).Marshal(body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

// encodeResponse wraps a reply as {success:true, data}. A nil reply writes nothing.
func encodeResponse(w http.ResponseWriter, _ *http.Request, v interface{}) error {
	if v == nil {
		return nil
	}
	return writeEnvelope(w, envelope{Success: true, Data: v})
}

// encodeError writes {success:false, error:{code, message}}. Server-side
// failures are reported without their details.
func encodeError(w http.ResponseWriter, _ *http.Request, err error) {
	se := errors.FromError(err)
	code := int(se.Code)
	body := &errorBody{Code: se.Reason, Message: se.Message}

	switch {
	case code >= nethttp.StatusInternalServerError || code < nethttp.StatusBadRequest:
		code = nethttp.StatusInternalServerError
		body = &errorBody{Code: reasonInternal, Message: messageInternal}
	case code == nethttp.StatusBadRequest:
		body.Code = biz.ReasonValidation
	case body.Code == "":
		body.Code = nethttp.StatusText(code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = writeEnvelope(w, envelope{Success: false, Error: body})
}

// notFound answers unknown routes with the error envelope.
func notFound(w http.ResponseWriter, r *http.Request) {
	encodeError(w, r, errors.NotFound("NOT_FOUND", "Route not found"))
}

// health reports liveness. It never depends on downstream services.
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	data, _ := encoding.GetCodec(json.Name).Marshal(map[string]string{
		"status":  "healthy",
		"service": "appointment-service",
	})
	_, _ = w.Write(data)
}

// securityHeaders sets the hardening headers on every response.
func securityHeaders(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-DNS-Prefetch-Control", "off")
		next.ServeHTTP(w, r)
	})
}
