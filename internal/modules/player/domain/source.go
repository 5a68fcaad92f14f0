package domain

// MusicSource identifies an upstream content provider.
type MusicSource string

const (
	MusicSourceNetease MusicSource = "netease"
	MusicSourceKuwo    MusicSource = "kuwo"
	MusicSourceQQ      MusicSource = "qq"
)

// DefaultMusicSource is assumed for listing entries that do not name a provider.
const DefaultMusicSource = MusicSourceQQ

var sourcePriority = []MusicSource{MusicSourceKuwo, MusicSourceQQ, MusicSourceNetease}

// SourcePriority returns the order in which alternate providers are tried.
func SourcePriority() []MusicSource {
	out := make([]MusicSource, len(sourcePriority))
	copy(out, sourcePriority)
	return out
}

// ParseMusicSource converts a string to a MusicSource.
// The second return value is false for unknown providers.
func ParseMusicSource(s string) (MusicSource, bool) {
	source := MusicSource(s)
	return source, source.IsValid()
}

// IsValid reports whether s is one of the known providers.
func (s MusicSource) IsValid() bool {
	switch s {
	case MusicSourceNetease, MusicSourceKuwo, MusicSourceQQ:
		return true
	default:
		return false
	}
}

func (s MusicSource) String() string {
	return string(s)
}

// DisplayName returns a human-readable provider name.
func (s MusicSource) DisplayName() string {
	switch s {
	case MusicSourceNetease:
		return "NetEase Cloud Music"
	case MusicSourceKuwo:
		return "Kuwo"
	case MusicSourceQQ:
		return "QQ Music"
	default:
		return "Unknown"
	}
}

// Color returns the brand color of the provider for embeds.
func (s MusicSource) Color() int {
	switch s {
	case MusicSourceNetease:
		return 0xE60026
	case MusicSourceKuwo:
		return 0xFFB400
	case MusicSourceQQ:
		return 0x31C27C
	default:
		return 0x5865F2
	}
}
