package domain

// BitRate is a quality tier requested from a provider.
type BitRate string

const (
	BitRate128k      BitRate = "128k"
	BitRate320k      BitRate = "320k"
	BitRateFLAC      BitRate = "flac"
	BitRateFLAC24Bit BitRate = "flac24bit"
)

var bitRateFallback = []BitRate{BitRate320k, BitRateFLAC, BitRate128k}

// BitRateFallback returns the quality tiers tried in order when resolving a stream.
func BitRateFallback() []BitRate {
	out := make([]BitRate, len(bitRateFallback))
	copy(out, bitRateFallback)
	return out
}

// ParseBitRate converts a string to a BitRate.
func ParseBitRate(s string) (BitRate, bool) {
	br := BitRate(s)
	switch br {
	case BitRate128k, BitRate320k, BitRateFLAC, BitRateFLAC24Bit:
		return br, true
	default:
		return "", false
	}
}

func (b BitRate) String() string {
	return string(b)
}
