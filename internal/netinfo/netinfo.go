package netinfo

import (
	"fmt"
	"net"
	"sort"
)

// LanIPs returns the machine's non-loopback IPv4 addresses, sorted for
// stable output. Used for the serve banner and the supervisor's LAN links.
func LanIPs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	sort.Strings(ips)
	return dedupe(ips)
}

// LanLinks formats the LAN addresses as http URLs for the given port.
func LanLinks(port int) []string {
	ips := LanIPs()
	links := make([]string, 0, len(ips))
	for _, ip := range ips {
		links = append(links, fmt.Sprintf("http://%s:%d", ip, port))
	}
	return links
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
