package pricing

import (
	"github.com/smallbiznis/blastwave/internal/pricing/repository"
	"github.com/smallbiznis/blastwave/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
