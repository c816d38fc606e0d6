package charge

import (
	"github.com/lumapag/pixgate/internal/charge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("charge",
	fx.Provide(service.NewService),
)
