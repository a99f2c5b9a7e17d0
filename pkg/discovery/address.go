package discovery

import (
	"net"
	"sort"
)

// SortIPsByPreference orders addresses for connecting to a media device.
// Priority order (highest to lowest):
//  1. Private IPv4 addresses
//  2. Other IPv4 addresses
//  3. IPv6 unique local and global addresses
//  4. IPv6 link-local addresses
//  5. Loopback and anything else
//
// Devices are keyed by address, so the order must be stable.
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}

	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})
	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	if ip.To16() == nil {
		return 99
	}
	if ip.IsLoopback() {
		return 80
	}
	if ip4 := ip.To4(); ip4 != nil {
		if ip4.IsPrivate() {
			return 0
		}
		if ip4.IsLinkLocalUnicast() {
			return 5
		}
		return 1
	}
	if isUniqueLocal(ip) || ip.IsGlobalUnicast() {
		return 10
	}
	if ip.IsLinkLocalUnicast() {
		return 20
	}
	return 90
}

// isUniqueLocal returns true if the IP is an IPv6 Unique Local Address (ULA).
// ULA range: fc00::/7 (fc00:: to fdff::)
func isUniqueLocal(ip net.IP) bool {
	ip = ip.To16()
	if ip == nil || ip.To4() != nil {
		return false
	}
	return ip[0] == 0xfc || ip[0] == 0xfd
}
