package campaign

import (
	"github.com/smallbiznis/blastwave/internal/campaign/repository"
	"github.com/smallbiznis/blastwave/internal/campaign/service"
	"go.uber.org/fx"
)

var Module = fx.Module("campaign.dispatch",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
