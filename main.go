package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ammiranda/taxonomy_service/config"
	"github.com/ammiranda/taxonomy_service/handlers"
	"github.com/ammiranda/taxonomy_service/internal/bootstrap"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal("Failed to start taxonomy service: ", err)
	}
	defer app.Close(ctx)

	if app.Config.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(app.Service, app.Logger, app.Metrics)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(app.Config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		app.Logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("server forced to shut down", zap.Error(err))
	}
}
