// gateway-id is a thin helper that prints a board's gateway EUI, the
// way original_source's standalone gateway-id utility does, without
// pulling in the scheduler or any of the daemon's worker loops.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/agsys/lora-gwd/internal/hal"
)

func main() {
	idHex := flag.String("id", "", "gateway id to report back, hex-encoded (8 bytes)")
	flag.Parse()

	var gatewayID [8]byte
	if *idHex != "" {
		var err error
		gatewayID, err = parseGatewayID(*idHex)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cap := hal.NewSimulatedCapability(gatewayID)
	eui, err := cap.GatewayEUI(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "gateway-id:", err)
		os.Exit(1)
	}

	fmt.Printf("%x\n", eui)
}

func parseGatewayID(hexStr string) ([8]byte, error) {
	var id [8]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return id, fmt.Errorf("gateway-id: invalid hex gateway id %q: %w", hexStr, err)
	}
	if len(raw) != 8 {
		return id, fmt.Errorf("gateway-id: gateway id must be 8 bytes (16 hex characters), got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
