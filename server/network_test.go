package server

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLANIPs(t *testing.T) {
	ips, err := LANIPs()
	require.NoError(t, err)

	// Isolated containers may have none.
	t.Logf("Found LAN IPs: %v", ips)
	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		require.NotNil(t, parsed, ip)
		assert.NotNil(t, parsed.To4(), "only IPv4 addresses: %s", ip)
		assert.False(t, parsed.IsLoopback(), ip)
	}
}

func TestFeedURLs(t *testing.T) {
	urls := FeedURLs(18090)
	require.NotEmpty(t, urls)
	assert.Equal(t, "ws://localhost:18090/ws", urls[0])
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, "ws://"), u)
		assert.True(t, strings.HasSuffix(u, ":18090/ws"), u)
	}
}
