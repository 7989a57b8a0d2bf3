// Package filter provides the audio filter catalog and per-session chain
// composition. Filters are opaque transform-pipeline descriptors applied by
// an external audio transformer; they are best-effort and never fail playback.
package filter

import "sort"

// Key identifies a supported audio filter.
type Key string

const (
	KeyBassboost Key = "bassboost"
	KeyNightcore Key = "nightcore"
	KeyVaporwave Key = "vaporwave"
	KeyKaraoke   Key = "karaoke"
	KeyTremolo   Key = "tremolo"
	KeyVibrato   Key = "vibrato"
	KeyEightD    Key = "8d"
	KeyTreble    Key = "treble"
)

// catalog is the fixed registry of supported filters and their transform
// descriptors. Unknown keys are rejected at the Enable/Disable boundary.
var catalog = map[Key]string{
	KeyBassboost: "bass=g=12:f=110:w=0.6",
	KeyNightcore: "asetrate=48000*1.25,aresample=48000",
	KeyVaporwave: "asetrate=48000*0.8,aresample=48000",
	KeyKaraoke:   "stereotools=mlev=0.03",
	KeyTremolo:   "tremolo=f=6.5:d=0.8",
	KeyVibrato:   "vibrato=f=6.5:d=0.5",
	KeyEightD:    "apulsator=hz=0.09",
	KeyTreble:    "treble=g=5",
}

// Supported returns all supported filter keys in stable order.
func Supported() []Key {
	keys := make([]Key, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Descriptor returns the transform descriptor for key.
func Descriptor(key Key) (string, bool) {
	d, ok := catalog[key]
	return d, ok
}

// IsSupported reports whether key is in the catalog.
func IsSupported(key Key) bool {
	_, ok := catalog[key]
	return ok
}
