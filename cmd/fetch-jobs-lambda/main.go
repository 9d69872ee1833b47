/*-------------------------------------------------------------------------
 *
 * jobs-feed - FetchJobsDataLimited Lambda Entry Point
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"os"

	"jobs-feed/internal/config"
	"jobs-feed/internal/database"
	"jobs-feed/internal/handler"
	"jobs-feed/internal/logging"
	"jobs-feed/internal/telemetry"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	// Configuration comes from the environment, plus the YAML file named
	// by JOBSFEED_CONFIG_FILE when set
	configPath := os.Getenv("JOBSFEED_CONFIG_FILE")
	cfg, err := config.LoadConfig(configPath, config.CLIFlags{ConfigFileSet: configPath != ""})
	if err != nil {
		logging.Error("Failed to load configuration", "function", handler.FunctionName, "error", err.Error())
		logging.Sync()
		os.Exit(1)
	}

	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logging.SetLevel(level)
	}

	// The pool is created once per execution environment and reused by
	// every invocation it serves
	provider, err := database.NewProvider(context.Background(), &cfg.Database)
	if err != nil {
		logging.Error("Failed to connect to database", "function", handler.FunctionName, "error", err.Error())
		logging.Sync()
		os.Exit(1)
	}

	tracing, err := telemetry.InitTracer(context.Background(), handler.FunctionName,
		os.Getenv(telemetry.EndpointEnvVar))
	if err != nil {
		logging.Error("Failed to initialize tracing", "function", handler.FunctionName, "error", err.Error())
		logging.Sync()
		os.Exit(1)
	}

	h := handler.New(provider)
	lambda.StartWithOptions(flushAfter(h.Handle, tracing.ForceFlush), lambda.WithEnableSIGTERM(func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logging.Warn("Flushing traces failed", "error", err.Error())
		}
		provider.Close()
		logging.Sync()
	}))
}

// handleFunc is the signature lambda.Start receives
type handleFunc func(ctx context.Context, event *handler.Event) (handler.Response, error)

// flushAfter wraps handle so each invocation exports its spans before
// returning; the execution environment is frozen between invocations.
func flushAfter(handle handleFunc, flush func(context.Context) error) handleFunc {
	return func(ctx context.Context, event *handler.Event) (handler.Response, error) {
		resp, err := handle(ctx, event)
		if flushErr := flush(ctx); flushErr != nil {
			logging.Warn("Flushing traces failed",
				"function", handler.FunctionName,
				"error", flushErr.Error(),
			)
		}
		return resp, err
	}
}
