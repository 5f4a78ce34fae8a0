package audit

import (
	"github.com/smallbiznis/blastwave/internal/audit/repository"
	"github.com/smallbiznis/blastwave/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
