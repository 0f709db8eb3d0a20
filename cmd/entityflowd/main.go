// Command entityflowd runs the entity-native execution runtime behind
// the read-only introspection HTTP/WS surface in ./httpapi, wiring the
// registry, callable registry, execution engine, event bus, event log,
// and retention sweeper into one process the way the teacher's
// cmd/appserver wires its Application and http.Service together.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/entityflow/entityflow/cmd/entityflowd/httpapi"
	"github.com/entityflow/entityflow/domain/automation"
	"github.com/entityflow/entityflow/domain/function"
	"github.com/entityflow/entityflow/domain/trigger"
	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/event"
	"github.com/entityflow/entityflow/internal/execution"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/internal/retention"
	"github.com/entityflow/entityflow/pkg/config"
	"github.com/entityflow/entityflow/pkg/logging"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to config or :8080)")
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	if trimmed := strings.TrimSpace(*configPath); trimmed != "" {
		os.Setenv("CONFIG_FILE", trimmed)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.InitDefault("entityflowd", cfg.Logging.Level, cfg.Logging.Format)

	reg := registry.New()
	callables := callable.New()

	if err := function.Register(callables); err != nil {
		log.Fatalf("register domain/function callables: %v", err)
	}
	if err := automation.Register(callables); err != nil {
		log.Fatalf("register domain/automation callables: %v", err)
	}
	if err := trigger.Register(callables); err != nil {
		log.Fatalf("register domain/trigger callables: %v", err)
	}

	eng := execution.New(reg, callables)
	bus := event.NewBus()
	eventLog := event.NewLog()
	bus.Subscribe(event.Predicate(func(event.Event) bool { return true }), eventLog.Record)

	sweeper := retention.New(reg, eventLog, cfg.Retention.Window)
	rootCtx := context.Background()
	if err := sweeper.Start(rootCtx, cfg.Retention.Schedule); err != nil {
		log.Fatalf("start retention sweeper: %v", err)
	}
	defer sweeper.Stop()

	listenAddr := determineAddr(*addr, cfg)
	svc := httpapi.NewService(listenAddr, reg, callables, eng, bus, eventLog)
	if err := svc.Start(rootCtx); err != nil {
		log.Fatalf("start http service: %v", err)
	}
	log.Printf("entityflowd listening on %s", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func determineAddr(flagAddr string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagAddr); trimmed != "" {
		return trimmed
	}
	host := strings.TrimSpace(cfg.Server.Host)
	if cfg.Server.Port == 0 {
		return ":8080"
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, cfg.Server.Port)
}
