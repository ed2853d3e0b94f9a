package components

import (
	"staybook/internal/handler"
	"staybook/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		api.NewWebhookHandler,
		api.NewRoomHandler,
	),
	fx.Invoke(handler.NewRouter),
)
