// lora-gwd is the LoRa gateway concentrator daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agsys/lora-gwd/internal/config"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/runtime"
)

var (
	configFile string
	rootCmd    = &cobra.Command{
		Use:   "lora-gwd",
		Short: "LoRa gateway concentrator daemon",
		Long:  "Userspace daemon driving a LoRa concentrator's JIT downlink scheduler, duty-cycle engine, and uplink/stats event feed.",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the gateway daemon",
		RunE:  runGateway,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("lora-gwd v0.1.0")
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/lora-gwd/gateway.yaml", "Configuration file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Gateway.IDHex == "" {
		return fmt.Errorf("gateway.id is required")
	}
	gatewayID, err := cfg.GatewayID()
	if err != nil {
		return err
	}

	// Real board bindings (sx1301/sx1302/sx1280 via the vendor HAL) are
	// out of scope here; the simulated capability stands in for them.
	cap := hal.NewSimulatedCapability(gatewayID)

	gw, err := runtime.New(cfg, cap)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting lora-gwd for gateway %x on board %s", gatewayID, cfg.Gateway.Board)
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	if err := gw.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
