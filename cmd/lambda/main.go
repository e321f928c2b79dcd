package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"

	_ "taskapi/docs" // swagger docs

	"taskapi/internal/app"
	"taskapi/internal/config"
	"taskapi/internal/logging"
)

// Serves the API behind API Gateway. Storage and cache connections are opened
// once per execution environment and reused across invocations.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("config load", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel, "service", "taskapi", "function", cfg.Lambda.FunctionName)

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	adapter := echoadapter.New(application.Echo)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
