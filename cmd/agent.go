package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/memwarden/agent/pkg/bootstrap"
	"github.com/memwarden/agent/internal/utils"
	"github.com/memwarden/agent/pkg/monitor"
	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/runner"
	"github.com/memwarden/agent/pkg/sink"
	"github.com/memwarden/agent/pkg/version"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Print version and exit")
	filePath := flag.String("file-sink", "", "Append events to this file in JSONL format")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersion())
		return
	}

	// Set the file name of the configurations file
	viper.SetConfigName("memwarden")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // optionally look for config in the working directory
	viper.AddConfigPath("/etc/memwarden")

	// Read the configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore the error
			log.Println("No config file found, proceeding with environment variables only.")
		} else {
			// Config file was found but another error occurred
			log.Fatalf("Error reading config file, %s", err)
		}
	}

	viper.AutomaticEnv()     // Read also environment variables
	viper.SetEnvPrefix("MW") // Set a prefix for environment variables

	logger := utils.NewLogger()

	thresholds, err := pressure.ConfigFromViper(nil)
	if err != nil {
		logger.Fatalf("Invalid threshold configuration: %s", err)
	}

	monitorConfig, err := monitor.ConfigFromViper(nil)
	if err != nil {
		logger.Fatalf("Invalid monitor configuration: %s", err)
	}

	sinks := []sink.Sink{sink.NewLogSink(logger)}

	if *filePath != "" {
		fileSink, err := sink.NewFileSink(*filePath, logger)
		if err != nil {
			logger.Fatalf("Failed to create file sink: %v", err)
		}
		sinks = append(sinks, fileSink)
	}

	webhookConfig, err := sink.WebhookConfigFromViper(nil)
	if err != nil {
		logger.Fatalf("Invalid webhook configuration: %s", err)
	}
	if webhookConfig.URL != "" {
		sinks = append(sinks, sink.NewWebhookSink(webhookConfig, logger))
	}

	// The agent itself owns no caches or pools; embedders wire theirs
	// through the bootstrap package.
	m := bootstrap.NewMonitor(monitorConfig, thresholds, bootstrap.Dependencies{}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go serveHTTP(ctx, m, logger.Errorf)

	logger.Info(version.GetVersion())
	if err := runner.Run(ctx, m, sinks, monitorConfig.CheckInterval, logger); err != nil && err != context.Canceled {
		logger.Errorf("Runner error: %v", err)
	}
}

// serveHTTP exposes prometheus metrics, the monitor status and a manual
// emergency recovery trigger.
func serveHTTP(ctx context.Context, m *monitor.Monitor, errorf func(string, ...interface{})) {
	addr := viper.GetString("metrics_address")
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Status()); err != nil {
			errorf("Failed to encode status: %v", err)
		}
	})

	mux.HandleFunc("/emergency", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		outcomes := bootstrap.EmergencyMemoryRecovery(r.Context(), m)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(outcomes); err != nil {
			errorf("Failed to encode outcomes: %v", err)
		}
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errorf("HTTP server error: %v", err)
	}
}
