package tray

import "encoding/binary"

const iconSize = 16

// getIcon builds a 16x16 32bpp ICO: a translucent frame around a clear
// center, the overlay's outline.
func getIcon() []byte {
	const (
		headerSize = 6 + 16
		dibSize    = 40
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
		imageSize  = dibSize + pixelBytes + maskBytes
	)
	icon := make([]byte, headerSize+imageSize)

	// ICONDIR
	binary.LittleEndian.PutUint16(icon[2:4], 1) // type: icon
	binary.LittleEndian.PutUint16(icon[4:6], 1) // count

	// ICONDIRENTRY
	icon[6], icon[7] = iconSize, iconSize
	binary.LittleEndian.PutUint16(icon[10:12], 1)  // planes
	binary.LittleEndian.PutUint16(icon[12:14], 32) // bpp
	binary.LittleEndian.PutUint32(icon[14:18], imageSize)
	binary.LittleEndian.PutUint32(icon[18:22], headerSize)

	// BITMAPINFOHEADER; height counts the XOR and AND masks.
	dib := icon[headerSize:]
	binary.LittleEndian.PutUint32(dib[0:4], dibSize)
	binary.LittleEndian.PutUint32(dib[4:8], iconSize)
	binary.LittleEndian.PutUint32(dib[8:12], iconSize*2)
	binary.LittleEndian.PutUint16(dib[12:14], 1)
	binary.LittleEndian.PutUint16(dib[14:16], 32)
	binary.LittleEndian.PutUint32(dib[20:24], pixelBytes)

	// BGRA pixels, bottom-up.
	px := dib[dibSize : dibSize+pixelBytes]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if x > 1 && x < iconSize-2 && y > 1 && y < iconSize-2 {
				continue
			}
			i := (y*iconSize + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = 0xE0, 0x90, 0x30, 0xFF
		}
	}
	return icon
}
