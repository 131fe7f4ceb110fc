package biz

import (
	"context"
	"errors"
	"strings"

	"MediConnect/internal/data"
	"MediConnect/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

const bearerPrefix = "Bearer "

// AuthUsecase authenticates callers with the auth service and checks roles.
type AuthUsecase struct {
	verifier TokenVerifier
	logger   *log.Helper
}

// NewAuthUsecase creates a new auth usecase.
func NewAuthUsecase(verifier TokenVerifier, logger log.Logger) *AuthUsecase {
	return &AuthUsecase{
		verifier: verifier,
		logger:   log.NewHelper(log.With(logger, "module", "biz/auth")),
	}
}

// Authenticate resolves an Authorization header value to a principal.
func (uc *AuthUsecase) Authenticate(ctx context.Context, authorization string) (*model.Principal, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return nil, ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if token == "" {
		return nil, ErrMissingToken
	}

	p, err := uc.verifier.VerifyToken(ctx, token)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, data.ErrTokenRejected):
		return nil, ErrInvalidToken
	default:
		uc.logger.Errorw("msg", "token verification failed", "error", err)
		return nil, ErrAuthFailed.WithCause(err)
	}
}

// Authorize checks that the principal in ctx holds one of roles.
// An empty role list admits any authenticated caller.
func (uc *AuthUsecase) Authorize(ctx context.Context, roles ...model.Role) error {
	p, ok := model.PrincipalFromContext(ctx)
	if !ok {
		return ErrMissingToken
	}
	if len(roles) == 0 || p.HasRole(roles...) {
		return nil
	}
	uc.logger.Warnw("msg", "access denied", "user_id", p.UserID, "role", p.Role)
	return ErrForbidden
}
