// Command tally aggregates collected reveal payloads into one consensus
// value. Reveals arrive one hex string per line, from files or stdin; the
// ABI-encoded result is printed as 0x-hex. Aggregation makes no network
// calls of its own.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"sibyl/internal/codec"
	"sibyl/internal/tally"
)

func main() {
	mode := flag.String("mode", "intarray", "reveal encoding: intarray (ABI int256[]) or u128le")
	minReveals := flag.Int("min-reveals", 1, "quorum: minimum accepted reveals")
	arity := flag.Int("arity", 0, "required field count (0 = full pipeline default for intarray)")
	flag.Parse()

	var decodeMode tally.Mode
	switch *mode {
	case "intarray":
		decodeMode = tally.ModeIntArray
	case "u128le":
		decodeMode = tally.ModeU128LE
	default:
		log.Fatalf("Unknown mode %q: want intarray or u128le", *mode)
	}

	fieldArity := *arity
	if fieldArity == 0 && decodeMode == tally.ModeIntArray {
		fieldArity = tally.PipelineArity
	}

	reveals, err := readReveals(flag.Args())
	if err != nil {
		log.Fatalf("Failed to read reveals: %v", err)
	}

	result, err := tally.Aggregate(reveals, decodeMode, tally.Options{
		MinReveals: *minReveals,
		Arity:      fieldArity,
	})
	if err != nil {
		log.Fatalf("Tally error: %v", err)
	}

	encoded, err := tally.EncodeResult(result.Values)
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}

	log.Printf("Final median values: %v", result.Values)
	fmt.Println("0x" + hex.EncodeToString(encoded))
}

// readReveals collects hex reveal lines from the given files, or stdin when
// none are named. Blank lines are skipped; a line that is not valid hex is
// kept as an empty payload so the aggregator logs and discards it instead of
// the CLI aborting the batch.
func readReveals(paths []string) ([][]byte, error) {
	if len(paths) == 0 {
		return scanReveals(os.Stdin)
	}

	var reveals [][]byte
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		fromFile, err := scanReveals(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		reveals = append(reveals, fromFile...)
	}
	return reveals, nil
}

func scanReveals(r io.Reader) ([][]byte, error) {
	var reveals [][]byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload, err := codec.DecodeHex(line)
		if err != nil {
			log.Printf("Reveal line is not valid hex: %v", err)
			payload = nil
		}
		reveals = append(reveals, payload)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reveals, nil
}
