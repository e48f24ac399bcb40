package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Cristobalca/shield-browser-app/log"
)

type ProxyCredentials struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type ImportResult struct {
	Success      bool   `json:"success"`
	Imported     int    `json:"imported"`
	InvalidLines int    `json:"invalid_lines"`
	Message      string `json:"message"`
}

// ParseProxyLine parses one credential line in any of the supported
// untagged formats:
//
//	HOST:PORT@USER:SECRET
//	USER:SECRET@HOST:PORT
//	HOST:PORT:USER:SECRET
//	USER:SECRET:HOST:PORT
//
// Orientation is decided by which candidate token parses as a valid port.
// Secrets may contain ':' themselves; once the port position is fixed, the
// secret consumes all remaining trailing tokens. Returns nil for blank
// lines, comments and anything that cannot be fully resolved.
func ParseProxyLine(line string) *ProxyCredentials {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	var address, username, secret string
	var port int

	if at := strings.Index(trimmed, "@"); at > 0 {
		left := strings.Split(trimmed[:at], ":")
		right := strings.Split(trimmed[at+1:], ":")

		if len(left) >= 2 && len(right) >= 2 {
			leftPort, leftErr := parsePort(left[1])
			rightPort, rightErr := parsePort(right[1])

			if leftErr == nil && rightErr != nil {
				// HOST:PORT@USER:SECRET
				address = left[0]
				port = leftPort
				username = right[0]
				secret = strings.Join(right[1:], ":")
			} else if rightErr == nil {
				// USER:SECRET@HOST:PORT
				username = left[0]
				secret = strings.Join(left[1:], ":")
				address = right[0]
				port = rightPort
			}
		}
	}

	if address == "" || port == 0 {
		parts := strings.Split(trimmed, ":")
		if len(parts) >= 4 {
			if p, err := parsePort(parts[1]); err == nil {
				// HOST:PORT:USER:SECRET...
				address = parts[0]
				port = p
				username = parts[2]
				secret = strings.Join(parts[3:], ":")
			} else if p, err := parsePort(parts[len(parts)-1]); err == nil {
				// USER:SECRET...:HOST:PORT
				username = parts[0]
				secret = strings.Join(parts[1:len(parts)-2], ":")
				address = parts[len(parts)-2]
				port = p
			}
		}
	}

	if address == "" || port == 0 || username == "" || secret == "" {
		return nil
	}
	if strings.Contains(address, " ") {
		return nil
	}

	return &ProxyCredentials{
		Address:  address,
		Port:     port,
		Username: username,
		Secret:   secret,
	}
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port out of range: %d", p)
	}
	return p, nil
}

// ImportFromFile ingests a credential list, tagging every node with the
// region. Malformed lines are counted and skipped, never aborting the
// import; I/O and validation failures come back as a structured result.
func (pm *ProxyManager) ImportFromFile(path string, regionCode string) *ImportResult {
	region := NormalizeRegionCode(regionCode)
	if region == "" {
		return &ImportResult{
			Success: false,
			Message: "a valid 2-letter region code is required (e.g. NY, FL)",
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("proxy-import: cannot read file: %v", err)
		return &ImportResult{
			Success: false,
			Message: fmt.Sprintf("cannot read proxy file: %v", err),
		}
	}

	creds := []*ProxyCredentials{}
	invalid := 0
	for n, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parsed := ParseProxyLine(trimmed)
		if parsed == nil {
			log.Warning("proxy-import: line %d has unrecognized format: %s", n+1, trimmed)
			invalid++
			continue
		}
		creds = append(creds, parsed)
	}

	if len(creds) == 0 {
		return &ImportResult{
			Success:      false,
			InvalidLines: invalid,
			Message:      "no valid proxy lines found in file",
		}
	}

	imported := 0
	for _, c := range creds {
		if _, err := pm.db.UpsertProxy(c.Address, c.Port, c.Username, c.Secret, region); err != nil {
			log.Error("proxy-import: failed to store node %s:%d: %v", c.Address, c.Port, err)
			return &ImportResult{
				Success:      false,
				Imported:     imported,
				InvalidLines: invalid,
				Message:      fmt.Sprintf("failed to store proxy node: %v", err),
			}
		}
		imported++
	}

	log.Success("proxy-import: %d proxies stored for %s (invalid lines: %d)", imported, region, invalid)
	return &ImportResult{
		Success:      true,
		Imported:     imported,
		InvalidLines: invalid,
		Message:      fmt.Sprintf("%d proxies stored for %s", imported, region),
	}
}
