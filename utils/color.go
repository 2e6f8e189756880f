package utils

// Embed colors, matching Discord's named palette.
const (
	ColorGreen   = 0x2ECC71
	ColorBlue    = 0x3498DB
	ColorOrange  = 0xE67E22
	ColorRed     = 0xE74C3C
	ColorBlurple = 0x5865F2
)
