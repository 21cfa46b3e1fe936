package cli

import (
	"net"
	"os"
	"strings"
)

// hostSANs returns this machine's host name and non-loopback unicast
// addresses, for certificates meant to be served from here.
func hostSANs() ([]string, []net.IP) {
	var names []string
	if h, err := os.Hostname(); err == nil && strings.TrimSpace(h) != "" {
		names = append(names, strings.ToLower(h))
	}

	var ips []net.IP
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return names, ips
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		ips = append(ips, ipnet.IP)
	}
	return names, ips
}

func mergeNames(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, n := range l {
			n = strings.TrimSpace(n)
			if n == "" || seen[strings.ToLower(n)] {
				continue
			}
			seen[strings.ToLower(n)] = true
			out = append(out, n)
		}
	}
	return out
}

func parseIPs(values []string) ([]net.IP, error) {
	var ips []net.IP
	for _, v := range values {
		ip := net.ParseIP(strings.TrimSpace(v))
		if ip == nil {
			return nil, usageErrorf("invalid IP address: %s", v)
		}
		ips = append(ips, ip)
	}
	return ips, nil
}
