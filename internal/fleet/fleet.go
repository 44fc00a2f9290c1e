// Package fleet loads the fixed list of monitored server endpoints.
package fleet

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/rs/zerolog/log"
)

// Load reads a newline-delimited list of ip:port addresses from path.
// Lines that do not parse are dropped; an unreadable file is an error.
func Load(path string) ([]models.Endpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server file: %w", err)
	}
	defer func() { _ = file.Close() }()

	endpoints, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read server file %s: %w", path, err)
	}

	return endpoints, nil
}

// Parse reads endpoints from r, skipping blank lines, '#' comments, duplicates
// and anything that is not a literal ip:port address.
func Parse(r io.Reader) ([]models.Endpoint, error) {
	var (
		endpoints []models.Endpoint
		seen      = make(map[models.Endpoint]struct{})
		scanner   = bufio.NewScanner(r)
		lineNo    int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		addr, err := netip.ParseAddrPort(line)
		if err != nil || addr.Port() == 0 {
			log.Trace().Int("line", lineNo).Str("value", line).Msg("Skipping unparsable server address")
			continue
		}

		endpoint := models.Endpoint(addr.String())
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		endpoints = append(endpoints, endpoint)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return endpoints, nil
}
