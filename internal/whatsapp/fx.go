package whatsapp

import "go.uber.org/fx"

var Module = fx.Module("whatsapp.client",
	fx.Provide(NewClient),
)
