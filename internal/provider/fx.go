package provider

import (
	"github.com/lumapag/pixgate/internal/provider/invictus"
	"go.uber.org/fx"
)

var Module = fx.Module("provider",
	fx.Provide(invictus.NewClient),
)
