package world

// Style is the ship cosmetics byte as it travels on the wire.
//
//	bit 0     base, low bit
//	bit 1     color mode
//	bit 2     lined
//	bit 3     spear
//	bit 4     spikes
//	bit 5     gem
//	bit 6     shards
//	bit 7     base, high bit (the old shield slot)
type Style uint8

const (
	styleBaseLow   Style = 1 << 0
	styleColorMode Style = 1 << 1
	styleLined     Style = 1 << 2
	styleSpear     Style = 1 << 3
	styleSpikes    Style = 1 << 4
	styleGem       Style = 1 << 5
	styleShards    Style = 1 << 6
	styleBaseHigh  Style = 1 << 7
)

// StyleFlags is the decoded form of a Style byte. Base selects the hull
// class and is always in [0, 3].
type StyleFlags struct {
	Base      uint8
	ColorMode bool
	Lined     bool
	Spear     bool
	Spikes    bool
	Gem       bool
	Shards    bool
}

// Flags decodes the byte
func (s Style) Flags() StyleFlags {
	f := StyleFlags{
		ColorMode: s&styleColorMode != 0,
		Lined:     s&styleLined != 0,
		Spear:     s&styleSpear != 0,
		Spikes:    s&styleSpikes != 0,
		Gem:       s&styleGem != 0,
		Shards:    s&styleShards != 0,
	}
	if s&styleBaseLow != 0 {
		f.Base |= 1
	}
	if s&styleBaseHigh != 0 {
		f.Base |= 2
	}
	return f
}

// Base returns the hull class index
func (s Style) Base() uint8 {
	return s.Flags().Base
}

// Style encodes the flags. Base values above 3 keep their low two bits.
func (f StyleFlags) Style() Style {
	var s Style
	if f.Base&1 != 0 {
		s |= styleBaseLow
	}
	if f.Base&2 != 0 {
		s |= styleBaseHigh
	}
	set := func(on bool, bit Style) {
		if on {
			s |= bit
		}
	}
	set(f.ColorMode, styleColorMode)
	set(f.Lined, styleLined)
	set(f.Spear, styleSpear)
	set(f.Spikes, styleSpikes)
	set(f.Gem, styleGem)
	set(f.Shards, styleShards)
	return s
}
