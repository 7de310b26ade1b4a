// The agent binary runs a reference enrichment worker. It registers all
// six enrichment tools with the message router and serves heuristic
// implementations, useful for local development and integration testing
// without a model-backed worker fleet.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epistlelabs/epistle/internal/config"
	"github.com/epistlelabs/epistle/internal/pipeline"
	"github.com/epistlelabs/epistle/internal/transport"
)

const reconnectDelay = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	agentID := os.Getenv("EPISTLE_AGENT_ID")
	if agentID == "" {
		agentID = "epistle-agent"
	}

	agent := transport.NewAgent(agentID, logger)
	agent.Handle(pipeline.ToolExtractMetadata, extractMetadata)
	agent.Handle(pipeline.ToolDetectStructure, detectStructure)
	agent.Handle(pipeline.ToolExtractEntities, extractEntities)
	agent.Handle(pipeline.ToolSummarizeContent, summarizeContent)
	agent.Handle(pipeline.ToolClassifyTopics, classifyTopics)
	agent.Handle(pipeline.ToolHistoricalContext, historicalContext)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	logger.Info("agent starting", "agent_id", agentID, "router", cfg.Transport.URL)

	for {
		err := agent.Run(ctx, cfg.Transport.URL)
		if ctx.Err() != nil {
			break
		}
		logger.Warn("router connection lost, reconnecting", "error", err, "delay", reconnectDelay)

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info("agent stopped")
}
