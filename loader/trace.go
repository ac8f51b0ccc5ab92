// Package loader reads and writes core access traces.
//
// A trace file holds one access per line:
//
//	<core> <L|S> <address>
//
// Addresses accept any Go integer literal (0x1000, 4096). Blank lines and
// lines starting with '#' are ignored.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/msisim/timing/core"
)

// MaxCores bounds the core index a trace file may use.
const MaxCores = 1024

// Load reads a trace file and returns one access trace per core. The result
// has as many entries as the highest core index plus one.
func Load(path string) ([][]core.Access, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads traces in the trace file format.
func Parse(r io.Reader) ([][]core.Access, error) {
	var traces [][]core.Access

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		coreID, access, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		for len(traces) <= coreID {
			traces = append(traces, nil)
		}
		traces[coreID] = append(traces[coreID], access)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	if len(traces) == 0 {
		return nil, fmt.Errorf("trace has no accesses")
	}

	return traces, nil
}

func parseLine(line string) (int, core.Access, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, core.Access{}, fmt.Errorf(
			"expected <core> <L|S> <address>, got %q", line)
	}

	coreID, err := strconv.Atoi(fields[0])
	if err != nil || coreID < 0 || coreID >= MaxCores {
		return 0, core.Access{}, fmt.Errorf("invalid core %q", fields[0])
	}

	var kind core.AccessKind
	switch strings.ToUpper(fields[1]) {
	case "L", "LOAD":
		kind = core.Load
	case "S", "STORE":
		kind = core.Store
	default:
		return 0, core.Access{}, fmt.Errorf("invalid access kind %q", fields[1])
	}

	addr, err := strconv.ParseUint(fields[2], 0, 64)
	if err != nil {
		return 0, core.Access{}, fmt.Errorf("invalid address %q", fields[2])
	}

	return coreID, core.Access{Kind: kind, Addr: addr}, nil
}

// Write prints traces in the trace file format. Accesses of different cores
// are interleaved round-robin.
func Write(w io.Writer, traces [][]core.Access) error {
	for i := 0; ; i++ {
		wrote := false
		for c, trace := range traces {
			if i >= len(trace) {
				continue
			}

			a := trace[i]
			kind := "L"
			if a.Kind == core.Store {
				kind = "S"
			}

			_, err := fmt.Fprintf(w, "%d %s %#x\n", c, kind, a.Addr)
			if err != nil {
				return err
			}
			wrote = true
		}

		if !wrote {
			return nil
		}
	}
}

// Fit pads or checks traces against the number of cores of a hierarchy.
func Fit(traces [][]core.Access, numCores int) ([][]core.Access, error) {
	if len(traces) > numCores {
		return nil, fmt.Errorf("trace uses %d cores, hierarchy has %d",
			len(traces), numCores)
	}

	fitted := make([][]core.Access, numCores)
	copy(fitted, traces)

	return fitted, nil
}
