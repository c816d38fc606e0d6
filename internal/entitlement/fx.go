package entitlement

import (
	"github.com/lumapag/pixgate/internal/entitlement/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(repository.Provide),
)
