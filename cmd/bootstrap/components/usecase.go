package components

import (
	"staybook/internal/infra/gateway"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/config"
	"staybook/internal/pkg/metrics"
	"staybook/internal/usecase/commands"
	"staybook/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func() *metrics.Metrics {
		return metrics.New("staybook")
	},
	fx.Annotate(
		gateway.NewClient,
		fx.As(new(commands.PaymentGateway)),
	),
	func(cfg config.GatewayConfig) *gateway.SignatureVerifier {
		return gateway.NewSignatureVerifier(cfg.WebhookSecret)
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewCheckoutCommands,
		commands.NewPaymentCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewRoomQueries,
	),
)
