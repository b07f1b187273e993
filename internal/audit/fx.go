package audit

import (
	"github.com/smallbiznis/shopfinder/internal/audit/repository"
	"github.com/smallbiznis/shopfinder/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
