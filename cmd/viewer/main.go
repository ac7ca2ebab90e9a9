// Transcript Viewer - live transcript and correction events.
// Consumes from Kafka topics and relays via WebSocket to the browser.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"transcript-search-service/internal/models"
	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/viewer"
)

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topics := flag.String("topics", strings.Join([]string{
		models.EventSessionTranscribed,
		models.EventCorrectionBatch,
		models.EventCorrectionCompleted,
	}, ","), "Topics to follow (comma-separated)")
	logFormat := flag.String("log-format", "console", "Log format: json or console")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: *logFormat, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub()
	go hub.Run(ctx)

	brokerList := strings.Split(*brokers, ",")
	for _, topic := range strings.Split(*topics, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		go viewer.Consume(ctx, viewer.NewReader(ctx, brokerList, topic), hub)
		log.Info().Str("topic", topic).Msg("Following topic")
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           viewer.Handler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", "http://localhost:"+*port).
		Strs("brokers", brokerList).
		Msg("Transcript viewer starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
