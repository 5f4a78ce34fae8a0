package template

import (
	"github.com/smallbiznis/blastwave/internal/template/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("template.repository",
	fx.Provide(repository.Provide),
)
