// Package netif reports the address clients use to reach the device.
package netif

import (
	"errors"
	"net"
)

// ErrNoAddress is returned when no usable IPv4 address is configured.
var ErrNoAddress = errors.New("no non-loopback IPv4 address")

// IPv4 returns the first non-loopback IPv4 address of an interface that is up.
func IPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var addrs []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			continue
		}
		addrs = append(addrs, a...)
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) (net.IP, error) {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, ErrNoAddress
}

// URL returns the base URL of a listen address such as ":80"
// reached through ip.
func URL(ip net.IP, listenAddr string) string {
	host := "0.0.0.0"
	if ip != nil {
		host = ip.String()
	}
	_, port, err := net.SplitHostPort(listenAddr)
	if err != nil || port == "" || port == "80" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}
