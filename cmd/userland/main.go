//go:build wasip1

// Userland is an example guest. It greets the host, logs through the
// sysreq device, resolves a name, uses the key-value store and times a run
// of pokes.
//
// Build with: GOOS=wasip1 GOARCH=wasm go build -o userland.wasm ./cmd/userland
// Run with:   asi run userland.wasm
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/caffeineduck/asi/guest"
)

const defaultPokes = 225000

func main() {
	fmt.Println("Hello WASI")

	client := guest.Root()
	log := slog.New(guest.NewLogHandler(client, nil))
	slog.SetDefault(log)

	log.Info("Hello a-Si log")

	guest.Hello("sysreq")

	addrs, err := guest.Lookup("miats.com:80")
	log.Info("lookup", "query", "miats.com:80", "addrs", addrs, "err", err)

	if err := client.KVSet("greeting", "hello"); err != nil {
		log.Warn("kv set failed", "err", err)
	}
	value, ok, err := client.KVGet("greeting")
	log.Info("kv get", "key", "greeting", "value", value, "found", ok, "err", err)

	log.Info("done")

	pokes := defaultPokes
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n > 0 {
			pokes = n
		}
	}

	start := time.Now()
	var count uint64
	for range pokes {
		count = guest.Poke()
	}
	log.Info("poke benchmark", "pokes", count, "duration", time.Since(start).Seconds())
}
