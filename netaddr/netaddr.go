// Package netaddr enumerates the local IPv4 addresses a session can be bound
// to or advertised on.
//
// Enumeration is advisory: every function here returns a usable answer even
// when the operating system refuses to list interfaces, and the loopback
// address is always offered as the last resort.
package netaddr

import (
	"net"

	"github.com/jackpal/gateway"
	"github.com/sirupsen/logrus"
)

// Loopback is the fallback address offered when nothing else is found.
const Loopback = "127.0.0.1"

// Enumerator lists local addresses. The zero value is not usable; use New.
type Enumerator struct {
	interfaceAddrs func() ([]net.Addr, error)
	gateway        func() (net.IP, error)
}

// New returns an Enumerator backed by the operating system.
func New() *Enumerator {
	return &Enumerator{
		interfaceAddrs: net.InterfaceAddrs,
		gateway:        gateway.DiscoverGateway,
	}
}

var defaultEnumerator = New()

// ListAddresses returns the local IPv4 addresses, preferred address first and
// the loopback address last.
func ListAddresses() []string { return defaultEnumerator.ListAddresses() }

// Preferred returns the address remote clients should use to reach this host.
func Preferred() string { return defaultEnumerator.Preferred() }

// AdvertiseAddress maps a bind address to the address clients should dial.
func AdvertiseAddress(bound string) string { return defaultEnumerator.AdvertiseAddress(bound) }

// ListAddresses returns the unique IPv4 unicast addresses of this host.
// The default-route address comes first when it can be determined and the
// loopback address is always present as the final entry.
func (e *Enumerator) ListAddresses() []string {
	nets := e.ipv4Nets()
	addresses := make([]string, 0, len(nets)+1)
	seen := make(map[string]bool)

	if preferred := e.gatewayAddress(nets); preferred != "" {
		addresses = append(addresses, preferred)
		seen[preferred] = true
	}

	for _, n := range nets {
		ip := n.IP.String()
		if seen[ip] {
			continue
		}
		seen[ip] = true
		addresses = append(addresses, ip)
	}

	if !seen[Loopback] {
		addresses = append(addresses, Loopback)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "ListAddresses",
		"addresses": addresses,
	}).Debug("Enumerated local addresses")

	return addresses
}

// Preferred returns the local address on the interface facing the default
// gateway. Without a gateway it falls back to the first private address,
// then the first other address, and finally to Loopback.
func (e *Enumerator) Preferred() string {
	nets := e.ipv4Nets()
	if addr := e.gatewayAddress(nets); addr != "" {
		return addr
	}
	for _, n := range nets {
		if IsPrivate(n.IP.String()) {
			return n.IP.String()
		}
	}
	if len(nets) > 0 {
		return nets[0].IP.String()
	}
	return Loopback
}

// AdvertiseAddress returns Preferred for unspecified bind addresses and the
// bound address itself otherwise.
func (e *Enumerator) AdvertiseAddress(bound string) string {
	if IsUnspecified(bound) {
		return e.Preferred()
	}
	return bound
}

// IsUnspecified reports whether addr binds every interface.
func IsUnspecified(addr string) bool {
	if addr == "" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsUnspecified()
}

// ipv4Nets returns the non-loopback IPv4 interface networks.
func (e *Enumerator) ipv4Nets() []*net.IPNet {
	addrs, err := e.interfaceAddrs()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ipv4Nets",
			"error":    err.Error(),
		}).Warn("Could not enumerate interface addresses")
		return nil
	}

	nets := make([]*net.IPNet, 0, len(addrs))
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() || !ip4.IsGlobalUnicast() {
			continue
		}
		nets = append(nets, &net.IPNet{IP: ip4, Mask: ipnet.Mask})
	}
	return nets
}

// gatewayAddress finds the local address in the same subnet as the default
// gateway, or "" when the gateway is unknown.
func (e *Enumerator) gatewayAddress(nets []*net.IPNet) string {
	if e.gateway == nil {
		return ""
	}
	gw, err := e.gateway()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "gatewayAddress",
			"error":    err.Error(),
		}).Debug("Default gateway discovery failed")
		return ""
	}
	for _, n := range nets {
		if n.Contains(gw) {
			return n.IP.String()
		}
	}
	return ""
}

// IsPrivate reports whether addr is an RFC 1918 or link-local IPv4 address.
func IsPrivate(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return ip.IsPrivate()
	}
	return ip4.IsPrivate() || ip4.IsLinkLocalUnicast()
}
