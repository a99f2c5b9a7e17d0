package airplay

import (
	"fmt"
	"strconv"
	"strings"
)

// Features is the AirPlay feature bitmask advertised in the "features"
// service property.
type Features uint64

// Feature flags relevant to authentication.
const (
	FeatureSupportsCoreUtilsPairingAndEncryption Features = 1 << 27
	FeatureSupportsSystemPairing                 Features = 1 << 28
)

// FeaturesProperty is the service property carrying the bitmask.
const FeaturesProperty = "features"

const defaultFeatures = "0x0"

// ParseFeatures parses "0xLOW" or "0xLOW,0xHIGH" where HIGH holds bits 32-63.
func ParseFeatures(s string) (Features, error) {
	if s == "" {
		s = defaultFeatures
	}
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return 0, fmt.Errorf("airplay: invalid features %q", s)
	}

	var out Features
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(p)), "0x"), 16, 32)
		if err != nil {
			return 0, fmt.Errorf("airplay: invalid features %q: %w", s, err)
		}
		out |= Features(v) << (32 * uint(i))
	}
	return out, nil
}

// Has reports whether all bits of flag are set.
func (f Features) Has(flag Features) bool {
	return f&flag == flag
}

// String formats the mask the way devices advertise it.
func (f Features) String() string {
	if high := uint64(f) >> 32; high != 0 {
		return fmt.Sprintf("0x%X,0x%X", uint64(f)&0xFFFFFFFF, high)
	}
	return fmt.Sprintf("0x%X", uint64(f))
}

// supportsTransient is the single capability test shared by
// SelectAuthentication and ExtractCredentials.
func supportsTransient(properties map[string]string) (bool, error) {
	features, err := ParseFeatures(properties[FeaturesProperty])
	if err != nil {
		return false, err
	}
	return features.Has(FeatureSupportsSystemPairing) ||
		features.Has(FeatureSupportsCoreUtilsPairingAndEncryption), nil
}
