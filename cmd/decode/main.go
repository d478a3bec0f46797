// Command decode converts raw buoy transmission logs into NDJSON offline,
// using the same decoders as the ETL pipeline. Viking logs are scanned for
// complete [NOM]..[FIN] blocks; Metis logs carry one frame per line.
//
// Usage:
//
//	go run ./cmd/decode -format viking -century 21 -platforms platforms.json PMZA_RIKI.dat
//
// Output goes to stdout, one decoded frame per line.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/adapter/platforms"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/config"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	format := flag.String("format", config.FormatViking, "frame dialect: viking or metis")
	century := flag.Int("century", 21, "century hint for two-digit Viking dates")
	platformFile := flag.String("platforms", "", "optional platform file for station enrichment")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("no input files")
	}
	if *format != config.FormatViking && *format != config.FormatMetis {
		return fmt.Errorf("unknown format %q", *format)
	}

	var registry domain.PlatformRegistry
	if *platformFile != "" {
		reg, err := platforms.Load(*platformFile)
		if err != nil {
			return err
		}
		registry = reg
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	total := 0
	for _, path := range flag.Args() {
		n, err := decodeFile(enc, path, *format, *century, registry)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		total += n
		log.Printf("%s: %d frames", path, n)
	}
	log.Printf("total: %d frames", total)
	return nil
}

func decodeFile(enc *json.Encoder, path, format string, century int, registry domain.PlatformRegistry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var raws []string
	if format == config.FormatMetis {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, "[INIT]") {
				raws = append(raws, line)
			}
		}
	} else {
		raws = domain.ScanFrames(string(data))
	}

	for i, raw := range raws {
		var (
			decoded domain.DecodedFrame
			err     error
		)
		if format == config.FormatMetis {
			decoded, err = domain.DecodeMetisFrame(raw)
		} else {
			decoded, err = domain.DecodeFrame(raw, century)
		}
		if err != nil {
			return i, err
		}
		event := domain.BuildFrameEvent(decoded, format, []byte(raw), registry)
		if err := enc.Encode(event); err != nil {
			return i, err
		}
	}
	return len(raws), nil
}
