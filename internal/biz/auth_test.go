package biz

import (
	"context"
	"errors"
	"io"
	"testing"

	"MediConnect/internal/data"
	"MediConnect/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth() (*AuthUsecase, *MockTokenVerifier) {
	v := new(MockTokenVerifier)
	return NewAuthUsecase(v, log.NewStdLogger(io.Discard)), v
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	patient := &model.Principal{UserID: "u-1", Role: model.RolePatient}

	tests := []struct {
		name    string
		header  string
		setup   func(v *MockTokenVerifier)
		want    *model.Principal
		wantErr error
	}{
		{
			name:    "missing header",
			header:  "",
			wantErr: ErrMissingToken,
		},
		{
			name:    "wrong scheme",
			header:  "Basic dXNlcjpwYXNz",
			wantErr: ErrMissingToken,
		},
		{
			name:    "empty bearer",
			header:  "Bearer   ",
			wantErr: ErrMissingToken,
		},
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(v *MockTokenVerifier) {
				v.On("VerifyToken", ctx, "good").Return(patient, nil)
			},
			want: patient,
		},
		{
			name:   "rejected token",
			header: "Bearer expired",
			setup: func(v *MockTokenVerifier) {
				v.On("VerifyToken", ctx, "expired").Return(nil, data.ErrTokenRejected)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:   "auth service down",
			header: "Bearer tok",
			setup: func(v *MockTokenVerifier) {
				v.On("VerifyToken", ctx, "tok").Return(nil, data.ErrAuthUnavailable)
			},
			wantErr: ErrAuthFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, v := newTestAuth()
			if tt.setup != nil {
				tt.setup(v)
			}

			got, err := uc.Authenticate(ctx, tt.header)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			v.AssertExpectations(t)
		})
	}
}

func TestAuthorize(t *testing.T) {
	uc, _ := newTestAuth()
	admin := model.NewPrincipalContext(context.Background(), &model.Principal{UserID: "a", Role: model.RoleAdmin})
	doctor := model.NewPrincipalContext(context.Background(), &model.Principal{UserID: "d", Role: model.RoleDoctor})

	assert.NoError(t, uc.Authorize(admin, model.RoleAdmin))
	assert.NoError(t, uc.Authorize(doctor))
	assert.NoError(t, uc.Authorize(doctor, model.RolePatient, model.RoleDoctor))
	assert.True(t, errors.Is(uc.Authorize(doctor, model.RoleAdmin), ErrForbidden))
	assert.True(t, errors.Is(uc.Authorize(context.Background()), ErrMissingToken))
}
