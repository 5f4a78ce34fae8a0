package webhook

import (
	"github.com/smallbiznis/blastwave/internal/webhook/repository"
	"github.com/smallbiznis/blastwave/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.reconciler",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
