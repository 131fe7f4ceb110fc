// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"time"

	"MediConnect/internal/biz"
	"MediConnect/internal/model"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// Policy maps an operation to the roles allowed to call it. An operation
// mapped to an empty list admits any authenticated caller; an operation
// missing from the policy is public.
type Policy map[string][]model.Role

// Authenticate returns a middleware that verifies the bearer token with the
// auth service and enforces the role policy of the current operation.
//
// Output example:
//
//	🔓 Authenticated user u-1 (PATIENT) in 3ms | {"type":"auth","user_id":"u-1","role":"PATIENT","duration_ms":3}
//	🔒 Access denied for user u-1 (PATIENT) on /mediconnect.appointment.v1.Appointment/DeleteAppointment
func Authenticate(auth *biz.AuthUsecase, policy Policy, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			roles, protected := policy[tr.Operation()]
			if !protected {
				return handler(ctx, req)
			}

			startTime := time.Now()
			principal, err := auth.Authenticate(ctx, tr.RequestHeader().Get("Authorization"))
			if err != nil {
				logger.Security("Authentication rejected on "+tr.Operation(),
					"operation", tr.Operation(),
					"error", err,
				)
				return nil, err
			}

			ctx = model.NewPrincipalContext(ctx, principal)
			pkglog.SetPrincipal(ctx, principal.UserID, string(principal.Role))
			logger.Auth(
				"Authenticated user "+principal.UserID+" ("+string(principal.Role)+") in "+formatDuration(time.Since(startTime).Milliseconds()),
				"user_id", principal.UserID,
				"role", string(principal.Role),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)

			if err := auth.Authorize(ctx, roles...); err != nil {
				logger.Security("Access denied for user "+principal.UserID+" ("+string(principal.Role)+") on "+tr.Operation(),
					"user_id", principal.UserID,
					"role", string(principal.Role),
					"operation", tr.Operation(),
				)
				return nil, err
			}
			return handler(ctx, req)
		}
	}
}
