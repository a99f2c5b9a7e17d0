package discovery

import (
	"sort"
	"strings"

	"github.com/backkem/mediapair/pkg/conf"
)

// TXT record keys read during scanning. Keys are compared lower-cased.
const (
	TXTKeyDeviceID         = "deviceid"
	TXTKeyFeatures         = "features"
	TXTKeyModel            = "model"
	TXTKeyUniqueIdentifier = "uniqueidentifier"
	TXTKeyName             = "name"
	TXTKeyDMAPName         = "ctln"
	TXTKeyMachineName      = "machine name"
	TXTKeyMachineID        = "machine id"
)

// ParseTXT parses raw TXT record strings into a map with lower-cased keys.
// Records without '=' are boolean attributes and map to "".
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string)
	for _, record := range records {
		if record == "" {
			continue
		}
		idx := strings.IndexByte(record, '=')
		switch {
		case idx > 0:
			result[strings.ToLower(record[:idx])] = record[idx+1:]
		case idx < 0:
			result[strings.ToLower(record)] = ""
		}
	}
	return result
}

// EncodeTXT renders properties as TXT record strings in key order.
func EncodeTXT(properties map[string]string) []string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]string, 0, len(keys))
	for _, k := range keys {
		records = append(records, k+"="+properties[k])
	}
	return records
}

// SplitRAOPInstance splits a RAOP instance name "AABBCCDDEEFF@Living Room"
// into its identifier and device name.
func SplitRAOPInstance(instance string) (identifier, name string, err error) {
	id, name, ok := strings.Cut(instance, "@")
	if !ok || id == "" {
		return "", "", ErrInvalidInstanceName
	}
	return id, name, nil
}

// ServiceInfo converts a resolved service into a conf.Service and the device
// name it advertises.
func ServiceInfo(r ResolvedService) (*conf.Service, string, error) {
	if !r.ServiceType.IsValid() {
		return nil, "", ErrInvalidServiceType
	}

	var identifier, name string
	switch r.ServiceType {
	case ServiceTypeMRP:
		identifier = r.Text[TXTKeyUniqueIdentifier]
		name = r.Text[TXTKeyName]
	case ServiceTypeAirPlay:
		identifier = r.Text[TXTKeyDeviceID]
		name = r.InstanceName
	case ServiceTypeCompanion:
		name = r.InstanceName
	case ServiceTypeRAOP:
		id, n, err := SplitRAOPInstance(r.InstanceName)
		if err != nil {
			return nil, "", err
		}
		identifier, name = id, n
	case ServiceTypeDMAP:
		identifier = r.InstanceName
		name = r.Text[TXTKeyDMAPName]
	case ServiceTypeHomeSharing:
		identifier = r.InstanceName
		name = r.Text[TXTKeyName]
	case ServiceTypeHSCP:
		identifier = r.Text[TXTKeyMachineID]
		name = r.Text[TXTKeyMachineName]
	}
	if name == "" {
		name = r.InstanceName
	}

	return conf.NewService(r.ServiceType.Protocol(), identifier, r.Port, r.Text), name, nil
}
