package billing

import (
	"github.com/smallbiznis/blastwave/internal/billing/repository"
	"github.com/smallbiznis/blastwave/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
