package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start)
func init() {
	log.Logger = log.Output(zerolog.New(zerolog.NewConsoleWriter())).With().Timestamp().Logger()

	app.MustInitDB()
	app.InitStripe()
	app.MustInitServices()

	router, err := app.NewRouter()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}

	ginLambda = ginadapter.New(router)
}

// Handler is the Lambda entrypoint for API Gateway proxy integration.
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
