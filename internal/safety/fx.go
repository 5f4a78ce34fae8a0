package safety

import "go.uber.org/fx"

var Module = fx.Module("safety.service",
	fx.Provide(New),
)
