package submission

import (
	"github.com/smallbiznis/shopfinder/internal/submission/repository"
	"github.com/smallbiznis/shopfinder/internal/submission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("submission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
