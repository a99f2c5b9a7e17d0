package conf

import "strings"

// Protocol identifies a device service protocol.
type Protocol uint8

const (
	ProtocolDMAP Protocol = iota + 1
	ProtocolMRP
	ProtocolAirPlay
	ProtocolCompanion
	ProtocolRAOP
)

// Protocols lists every protocol in declaration order.
var Protocols = []Protocol{ProtocolDMAP, ProtocolMRP, ProtocolAirPlay, ProtocolCompanion, ProtocolRAOP}

// mainProtocols is the preference order for Identifier and MainService.
var mainProtocols = []Protocol{ProtocolMRP, ProtocolDMAP, ProtocolAirPlay, ProtocolRAOP}

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolDMAP:
		return "DMAP"
	case ProtocolMRP:
		return "MRP"
	case ProtocolAirPlay:
		return "AirPlay"
	case ProtocolCompanion:
		return "Companion"
	case ProtocolRAOP:
		return "RAOP"
	default:
		return "Unknown"
	}
}

// DefaultPort returns the usual port of the protocol, or 0 if it has none.
func (p Protocol) DefaultPort() int {
	switch p {
	case ProtocolDMAP:
		return 3689
	case ProtocolAirPlay, ProtocolRAOP:
		return 7000
	default:
		return 0
	}
}

// ParseProtocol parses a protocol name, case-insensitively.
func ParseProtocol(s string) (Protocol, bool) {
	for _, p := range Protocols {
		if strings.EqualFold(p.String(), s) {
			return p, true
		}
	}
	return 0, false
}
