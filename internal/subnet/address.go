package subnet

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

// addressPattern matches the first ipv4:port pair in a registry address string.
var addressPattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d+`)

// ExtractAddress pulls a dialable "ip:port" out of a free-form registry address.
// Registry entries may carry schemes, paths or garbage around the pair.
func ExtractAddress(raw string) (string, error) {
	match := addressPattern.FindString(raw)
	if match == "" {
		return "", fmt.Errorf("no ip:port in %q", raw)
	}

	host, portStr, err := net.SplitHostPort(match)
	if err != nil {
		return "", fmt.Errorf("split %q:\n%w", match, err)
	}

	if net.ParseIP(host) == nil {
		return "", fmt.Errorf("invalid ip %q", host)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %q", portStr)
	}

	return match, nil
}
