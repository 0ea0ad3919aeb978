package main

import (
	"context"
	"log"

	"github.com/ammiranda/taxonomy_service/internal/bootstrap"
	"github.com/ammiranda/taxonomy_service/internal/lambda"

	awslambda "github.com/aws/aws-lambda-go/lambda"
)

func main() {
	ctx := context.Background()

	// Initialize once per container; warm invocations reuse the store
	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal("Failed to start taxonomy handler: ", err)
	}
	defer app.Close(ctx)

	handler := lambda.NewHandler(app.Service, app.Logger)

	// Start Lambda
	awslambda.Start(handler.Handle)
}
