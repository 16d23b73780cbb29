package server

import (
	"net"
	"strconv"
)

// LANIPs returns all local IPv4 addresses (non-loopback) of interfaces that
// are up.
func LANIPs() ([]string, error) {
	var ips []string

	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
				ips = append(ips, ip.String())
			}
		}
	}

	return ips, nil
}

// FeedURLs returns the WebSocket URLs the feed is reachable at on port,
// localhost first.
func FeedURLs(port int) []string {
	hosts := []string{"localhost"}
	if ips, err := LANIPs(); err == nil {
		hosts = append(hosts, ips...)
	}

	urls := make([]string, 0, len(hosts))
	for _, h := range hosts {
		urls = append(urls, "ws://"+net.JoinHostPort(h, strconv.Itoa(port))+"/ws")
	}
	return urls
}
