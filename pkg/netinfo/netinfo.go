// Package netinfo resolves the host address shown on the display's IP screen.
package netinfo

import "net"

// PrimaryIPv4 returns the first global unicast IPv4 address found on an up,
// non-loopback interface. The second return is false when the host has no
// usable address (the display then shows a placeholder).
func PrimaryIPv4() (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch a := addr.(type) {
			case *net.IPNet:
				ip = a.IP
			case *net.IPAddr:
				ip = a.IP
			}
			ip4 := ip.To4()
			if ip4 == nil || ip4.IsLoopback() || !ip4.IsGlobalUnicast() {
				continue
			}
			return ip4.String(), true
		}
	}
	return "", false
}
