package display

// SSD1306 command bytes, from the controller datasheet.
const (
	cmdSetContrast      byte = 0x81 // + 1 byte, 0x00-0xFF
	cmdDisplayAllOnRAM  byte = 0xA4 // follow RAM content
	cmdNormalDisplay    byte = 0xA6
	cmdDisplayOff       byte = 0xAE // sleep
	cmdDisplayOn        byte = 0xAF
	cmdSetDisplayOffset byte = 0xD3 // + 1 byte
	cmdSetComPins       byte = 0xDA // + 1 byte
	cmdSetVComDetect    byte = 0xDB // + 1 byte
	cmdSetClockDiv      byte = 0xD5 // + 1 byte
	cmdSetPrecharge     byte = 0xD9 // + 1 byte
	cmdSetMultiplex     byte = 0xA8 // + 1 byte, rows-1
	cmdSetStartLine     byte = 0x40 // | line
	cmdMemoryMode       byte = 0x20 // + 1 byte
	cmdColumnAddr       byte = 0x21 // + start, end
	cmdPageAddr         byte = 0x22 // + start, end
	cmdComScanDec       byte = 0xC8
	cmdSegRemap         byte = 0xA0 // | 1 mirrors columns
	cmdChargePump       byte = 0x8D // + 1 byte
	cmdDeactivateScroll byte = 0x2E
)

// I2C control bytes that prefix every transfer.
const (
	ctrlCommand byte = 0x00 // Co=0, D/C#=0: the rest are commands
	ctrlData    byte = 0x40 // Co=0, D/C#=1: the rest are GDDRAM data
)

const (
	memHorizontal byte = 0x00
	chargePumpOn  byte = 0x14
)

// DefaultContrast is the contrast programmed by Init unless overridden.
const DefaultContrast byte = 0xCF

// initSequence returns the power-on configuration for a 128x64 panel with
// the internal charge pump.
func initSequence(contrast byte) []byte {
	return []byte{
		cmdDisplayOff,
		cmdSetClockDiv, 0x80,
		cmdSetMultiplex, Height - 1,
		cmdSetDisplayOffset, 0x00,
		cmdSetStartLine | 0x00,
		cmdChargePump, chargePumpOn,
		cmdMemoryMode, memHorizontal,
		cmdSegRemap | 0x01,
		cmdComScanDec,
		cmdSetComPins, 0x12,
		cmdSetContrast, contrast,
		cmdSetPrecharge, 0xF1,
		cmdSetVComDetect, 0x40,
		cmdDeactivateScroll,
		cmdDisplayAllOnRAM,
		cmdNormalDisplay,
		cmdDisplayOn,
	}
}
