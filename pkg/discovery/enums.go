// Package discovery finds Apple media devices on the local network with
// DNS-SD (mDNS) and groups their services into conf.Device values.
//
// Browsed service types:
//   - _mediaremotetv._tcp   MRP
//   - _airplay._tcp         AirPlay
//   - _companion-link._tcp  Companion
//   - _raop._tcp            RAOP
//   - _touch-able._tcp, _appletv-v2._tcp, _hscp._tcp  DMAP
package discovery

import "github.com/backkem/mediapair/pkg/conf"

// ServiceType identifies the type of DNS-SD service.
type ServiceType int

// ServiceType constants.
const (
	// ServiceTypeUnknown represents an unknown or invalid service type.
	ServiceTypeUnknown ServiceType = iota

	// ServiceTypeMRP is the Media Remote Protocol service.
	ServiceTypeMRP

	// ServiceTypeAirPlay is the AirPlay service.
	ServiceTypeAirPlay

	// ServiceTypeCompanion is the Companion Link service.
	ServiceTypeCompanion

	// ServiceTypeRAOP is the AirTunes audio service.
	ServiceTypeRAOP

	// ServiceTypeDMAP is the DMAP remote service of paired devices.
	ServiceTypeDMAP

	// ServiceTypeHomeSharing is the DMAP service with home sharing enabled.
	ServiceTypeHomeSharing

	// ServiceTypeHSCP is the DMAP service of iTunes home sharing hosts.
	ServiceTypeHSCP
)

// DNS-SD service type strings.
const (
	ServiceMRP         = "_mediaremotetv._tcp"
	ServiceAirPlay     = "_airplay._tcp"
	ServiceCompanion   = "_companion-link._tcp"
	ServiceRAOP        = "_raop._tcp"
	ServiceDMAP        = "_touch-able._tcp"
	ServiceHomeSharing = "_appletv-v2._tcp"
	ServiceHSCP        = "_hscp._tcp"

	// DefaultDomain is the default mDNS domain.
	DefaultDomain = "local."
)

// AllServiceTypes lists every browsed service type.
var AllServiceTypes = []ServiceType{
	ServiceTypeMRP,
	ServiceTypeAirPlay,
	ServiceTypeCompanion,
	ServiceTypeRAOP,
	ServiceTypeDMAP,
	ServiceTypeHomeSharing,
	ServiceTypeHSCP,
}

// String returns a human-readable string for the service type.
func (s ServiceType) String() string {
	switch s {
	case ServiceTypeMRP:
		return "MRP"
	case ServiceTypeAirPlay:
		return "AirPlay"
	case ServiceTypeCompanion:
		return "Companion"
	case ServiceTypeRAOP:
		return "RAOP"
	case ServiceTypeDMAP:
		return "DMAP"
	case ServiceTypeHomeSharing:
		return "HomeSharing"
	case ServiceTypeHSCP:
		return "HSCP"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the service type is valid.
func (s ServiceType) IsValid() bool {
	return s > ServiceTypeUnknown && s <= ServiceTypeHSCP
}

// ServiceString returns the DNS-SD service type string.
func (s ServiceType) ServiceString() string {
	switch s {
	case ServiceTypeMRP:
		return ServiceMRP
	case ServiceTypeAirPlay:
		return ServiceAirPlay
	case ServiceTypeCompanion:
		return ServiceCompanion
	case ServiceTypeRAOP:
		return ServiceRAOP
	case ServiceTypeDMAP:
		return ServiceDMAP
	case ServiceTypeHomeSharing:
		return ServiceHomeSharing
	case ServiceTypeHSCP:
		return ServiceHSCP
	default:
		return ""
	}
}

// Protocol returns the protocol served by the service type.
func (s ServiceType) Protocol() conf.Protocol {
	switch s {
	case ServiceTypeMRP:
		return conf.ProtocolMRP
	case ServiceTypeAirPlay:
		return conf.ProtocolAirPlay
	case ServiceTypeCompanion:
		return conf.ProtocolCompanion
	case ServiceTypeRAOP:
		return conf.ProtocolRAOP
	case ServiceTypeDMAP, ServiceTypeHomeSharing, ServiceTypeHSCP:
		return conf.ProtocolDMAP
	default:
		return 0
	}
}

// ParseServiceType maps a DNS-SD service string back to its type.
func ParseServiceType(service string) ServiceType {
	for _, st := range AllServiceTypes {
		if st.ServiceString() == service {
			return st
		}
	}
	return ServiceTypeUnknown
}
