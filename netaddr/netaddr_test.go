package netaddr

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipNet(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, n, err := net.ParseCIDR(cidr)
	require.NoError(t, err)
	n.IP = ip
	return n
}

func newTestEnumerator(addrs []net.Addr, addrErr error, gw net.IP, gwErr error) *Enumerator {
	return &Enumerator{
		interfaceAddrs: func() ([]net.Addr, error) { return addrs, addrErr },
		gateway:        func() (net.IP, error) { return gw, gwErr },
	}
}

func TestListAddressesPrefersGatewaySubnet(t *testing.T) {
	addrs := []net.Addr{
		ipNet(t, "127.0.0.1/8"),
		ipNet(t, "10.8.0.2/24"),
		ipNet(t, "192.168.1.20/24"),
		ipNet(t, "fe80::1/64"),
	}
	e := newTestEnumerator(addrs, nil, net.ParseIP("192.168.1.1"), nil)

	got := e.ListAddresses()
	assert.Equal(t, []string{"192.168.1.20", "10.8.0.2", Loopback}, got)
	assert.Equal(t, "192.168.1.20", e.Preferred())
}

func TestListAddressesEnumerationFailure(t *testing.T) {
	e := newTestEnumerator(nil, errors.New("permission denied"), nil, errors.New("no route"))

	assert.Equal(t, []string{Loopback}, e.ListAddresses())
	assert.Equal(t, Loopback, e.Preferred())
}

func TestPreferredWithoutGateway(t *testing.T) {
	addrs := []net.Addr{ipNet(t, "172.16.5.4/16")}
	e := newTestEnumerator(addrs, nil, nil, errors.New("no gateway"))

	assert.Equal(t, "172.16.5.4", e.Preferred())
	assert.Equal(t, []string{"172.16.5.4", Loopback}, e.ListAddresses())
}

func TestPreferredFavorsPrivateWithoutGateway(t *testing.T) {
	addrs := []net.Addr{ipNet(t, "203.0.113.7/24"), ipNet(t, "192.168.50.2/24")}
	e := newTestEnumerator(addrs, nil, nil, errors.New("no gateway"))
	assert.Equal(t, "192.168.50.2", e.Preferred())

	public := newTestEnumerator(addrs[:1], nil, nil, errors.New("no gateway"))
	assert.Equal(t, "203.0.113.7", public.Preferred())
}

func TestAdvertiseAddress(t *testing.T) {
	addrs := []net.Addr{ipNet(t, "10.0.0.5/24")}
	e := newTestEnumerator(addrs, nil, net.ParseIP("10.0.0.1"), nil)

	tests := []struct {
		bound string
		want  string
	}{
		{"", "10.0.0.5"},
		{"0.0.0.0", "10.0.0.5"},
		{"::", "10.0.0.5"},
		{"127.0.0.1", "127.0.0.1"},
		{"localhost", "localhost"},
		{"10.0.0.5", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.bound, func(t *testing.T) {
			assert.Equal(t, tt.want, e.AdvertiseAddress(tt.bound))
		})
	}
}

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate("10.1.2.3"))
	assert.True(t, IsPrivate("192.168.0.10"))
	assert.True(t, IsPrivate("169.254.1.1"))
	assert.False(t, IsPrivate("8.8.8.8"))
	assert.False(t, IsPrivate("not-an-ip"))
}

func TestDefaultListAddressesAlwaysHasLoopback(t *testing.T) {
	addresses := ListAddresses()
	require.NotEmpty(t, addresses)
	assert.Equal(t, Loopback, addresses[len(addresses)-1])
}
