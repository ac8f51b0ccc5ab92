// Package main points at the msisim command.
//
// The simulator lives in ./cmd/msisim; this file only explains how to reach
// it when the module root is run directly.
package main

import (
	"fmt"
	"os"
)

const usage = `msisim simulates private L1 caches kept coherent by a directory running
the MSI protocol, on top of the Akita event engine.

Build or run the command in ./cmd/msisim:

  go run ./cmd/msisim run --workload migratory --cores 4
  go run ./cmd/msisim run --trace-file accesses.txt --trace-db trace
  go run ./cmd/msisim bench --quick --csv
  go run ./cmd/msisim config --write timing.json

Workloads: private, read_shared, producer_consumer, migratory,
false_sharing, random_mix.
`

func main() {
	fmt.Fprint(os.Stderr, usage)

	if len(os.Args) > 1 {
		fmt.Fprintf(os.Stderr, "\nIgnoring %d argument(s); use ./cmd/msisim.\n",
			len(os.Args)-1)
		os.Exit(2)
	}
}
