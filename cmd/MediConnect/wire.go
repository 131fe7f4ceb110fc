//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"MediConnect/internal/biz"
	"MediConnect/internal/conf"
	"MediConnect/internal/data"
	"MediConnect/internal/server"
	"MediConnect/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Services, *conf.Insurance, *conf.Appointment, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		NewStatsReporter,
		newApp,
	))
}
