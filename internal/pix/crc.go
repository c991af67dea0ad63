package pix

import "fmt"

// Checksum computes CRC-16/CCITT-FALSE over the bytes of s and returns it
// as 4 uppercase hex digits: initial register 0xFFFF, polynomial 0x1021,
// MSB-first, no final XOR. Payment-app scanners reject any other variant.
func Checksum(s string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}
