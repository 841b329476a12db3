// Command starknet-lite-proxy runs the trust-minimized StarkNet
// JSON-RPC proxy (spec §1): it anchors a live view of L2 state from L1
// (pkg/l1tracker), resolves block ids against that anchor
// (pkg/blockresolve), verifies storage reads against the anchored root
// (pkg/trie/pkg/stateproxy) and executes read-only calls against the
// current tracked state (pkg/executor), fronting it all with a JSON-RPC
// 2.0 HTTP server (pkg/rpcserver). Phased startup logging and the
// signal-driven graceful shutdown sequence follow the teacher's main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/starknet-lite-proxy/pkg/backend"
	"github.com/certen/starknet-lite-proxy/pkg/config"
	"github.com/certen/starknet-lite-proxy/pkg/executor"
	"github.com/certen/starknet-lite-proxy/pkg/l1tracker"
	"github.com/certen/starknet-lite-proxy/pkg/logging"
	"github.com/certen/starknet-lite-proxy/pkg/rpcserver"
	"github.com/certen/starknet-lite-proxy/pkg/stateproxy"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("🚀 Starting starknet-lite-proxy")

	var (
		configFile = flag.String("config", "", "Path to a YAML or JSON config file (overrides STARKNET_PROXY_CONFIG_FILE)")
		showHelp   = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	if *configFile != "" {
		os.Setenv("STARKNET_PROXY_CONFIG_FILE", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ [Phase 1] Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ [Phase 1] Invalid configuration: %v", err)
	}
	log.Printf("✅ [Phase 1] Configuration loaded: network=%s rpc_addr=%s", cfg.Network, cfg.RPCAddr)

	rootLogger := logging.New(logging.ParseLevel(cfg.LogLevel))

	log.Printf("📡 [Phase 2] Constructing backend client for %s", cfg.StarknetRPC)
	backendClient := backend.New(cfg.StarknetRPC, cfg.RequestTimeout)
	log.Printf("✅ [Phase 2] Backend client ready")

	log.Printf("🔗 [Phase 3] Connecting L1-anchored state tracker to %s", cfg.EthExecutionRPC)
	tracker, err := l1tracker.New(cfg.EthExecutionRPC, l1tracker.Network(cfg.Network), time.Duration(cfg.PollSecs)*time.Second, rootLogger)
	if err != nil {
		log.Fatalf("❌ [Phase 3] Failed to construct L1 tracker: %v", err)
	}
	defer tracker.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer initCancel()
	if err := tracker.Init(initCtx); err != nil {
		log.Fatalf("❌ [Phase 3] Initial L1 sync failed: %v", err)
	}
	log.Printf("✅ [Phase 3] L1-anchored state tracker synced")

	log.Printf("🧮 [Phase 4] Starting call executor worker pool")
	callExecutor := executor.New(executor.DefaultVM{}, executor.DefaultPoolSize)
	defer callExecutor.Close()
	log.Printf("✅ [Phase 4] Call executor ready")

	storageCache := stateproxy.NewStorageCache()

	log.Printf("🌐 [Phase 5] Starting JSON-RPC front-end on %s", cfg.RPCAddr)
	server := rpcserver.New(cfg.RPCAddr, backendClient, tracker, callExecutor, storageCache, rootLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go tracker.Run(ctx)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ [Phase 5] HTTP server failed: %v", err)
		}
	}()
	log.Printf("✅ starknet-lite-proxy ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 Shutting down starknet-lite-proxy...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("✅ starknet-lite-proxy stopped")
}

func printHelp() {
	log.Printf("starknet-lite-proxy: a trust-minimized StarkNet JSON-RPC proxy")
	log.Printf("Configuration is read from environment variables; see pkg/config for the full list.")
	log.Printf("Flags:")
	log.Printf("  -config string   Path to a YAML or JSON config file")
	log.Printf("  -help            Show this message")
}
