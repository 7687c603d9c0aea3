// Package ata is a PIO-mode ATA/IDE disk driver: drive detection via
// IDENTIFY and 28-bit LBA sector read/write on the primary and secondary
// channels. Everything here is polled; there is no IRQ-driven variant
// yet (see the scheduler's BLOCKED state for where one would hook in).
package ata

import (
	"fmt"

	"aceos/internal/arch"
)

const (
	primaryBase   = 0x1F0
	secondaryBase = 0x170

	regData        = 0x00
	regError       = 0x01
	regSectorCount = 0x02
	regLBALow      = 0x03
	regLBAMid      = 0x04
	regLBAHigh     = 0x05
	regDriveHead   = 0x06
	regStatus      = 0x07
	regCommand     = 0x07

	statusBSY = 0x80
	statusRDY = 0x40
	statusDRQ = 0x08
	statusERR = 0x01

	cmdReadSectors  = 0x20
	cmdWriteSectors = 0x30
	cmdIdentify     = 0xEC

	// SectorSize is the only sector size this driver speaks.
	SectorSize = 512

	maxDrives = 4
	timeout   = 1000000
)

// Info is what IDENTIFY reveals about a drive.
type Info struct {
	Drive        uint8
	Present      bool
	Model        string
	TotalSectors uint32
}

var drives [maxDrives]Info

// Init probes all four possible ATA drives (two per channel) and
// records which are present.
func Init() {
	for i := range drives {
		drives[i] = Info{}
	}
	for d := uint8(0); d < maxDrives; d++ {
		info, ok := identify(d)
		if ok {
			info.Drive = d
			info.Present = true
			drives[d] = info
		}
	}
}

func baseFor(drive uint8) uint16 {
	if drive < 2 {
		return primaryBase
	}
	return secondaryBase
}

// GetInfo returns the detected drive info, ok is false if the drive
// index is out of range or no drive answered IDENTIFY.
func GetInfo(drive uint8) (Info, bool) {
	if drive >= maxDrives || !drives[drive].Present {
		return Info{}, false
	}
	return drives[drive], true
}

func identify(drive uint8) (Info, bool) {
	base := baseFor(drive)
	driveSelect := uint8(0xA0)
	if drive%2 == 1 {
		driveSelect = 0xB0
	}

	arch.Out8(base+regDriveHead, driveSelect)
	for i := 0; i < 4; i++ {
		arch.In8(base + regStatus)
	}

	arch.Out8(base+regCommand, cmdIdentify)
	status := arch.In8(base + regStatus)
	if status == 0 {
		return Info{}, false
	}

	if !waitWhile(base, statusBSY) {
		return Info{}, false
	}
	status = arch.In8(base + regStatus)
	if status&statusERR != 0 {
		return Info{}, false
	}
	if !waitUntil(base, statusDRQ) {
		return Info{}, false
	}

	var raw [256]uint16
	for i := range raw {
		raw[i] = arch.In16(base + regData)
	}

	model := make([]byte, 0, 40)
	for i := 0; i < 20; i++ {
		word := raw[27+i]
		model = append(model, byte(word>>8), byte(word))
	}
	totalSectors := uint32(raw[60]) | uint32(raw[61])<<16

	return Info{
		Model:        trimTrailing(model),
		TotalSectors: totalSectors,
	}, true
}

func trimTrailing(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}

// waitWhile spins while status&mask is set, bailing out after timeout
// iterations. Returns false on timeout.
func waitWhile(base uint16, mask uint8) bool {
	for i := 0; i < timeout; i++ {
		if arch.In8(base+regStatus)&mask == 0 {
			return true
		}
	}
	return false
}

// waitUntil spins until status&mask is set, bailing out after timeout
// iterations. Returns false on timeout.
func waitUntil(base uint16, mask uint8) bool {
	for i := 0; i < timeout; i++ {
		if arch.In8(base+regStatus)&mask != 0 {
			return true
		}
	}
	return false
}

// ReadSectors reads count sectors starting at lba (28-bit) into buf,
// which must be at least count*SectorSize bytes.
func ReadSectors(drive uint8, lba uint32, count uint16, buf []byte) error {
	if drive >= maxDrives || !drives[drive].Present {
		return fmt.Errorf("ata: drive %d not present", drive)
	}
	if len(buf) < int(count)*SectorSize {
		return fmt.Errorf("ata: buffer too small for %d sectors", count)
	}
	base := baseFor(drive)
	if err := setupLBA(base, drive, lba, count); err != nil {
		return err
	}
	arch.Out8(base+regCommand, cmdReadSectors)

	for sector := 0; sector < int(count); sector++ {
		if !waitUntil(base, statusDRQ) {
			return fmt.Errorf("ata: timeout waiting for DRQ on read")
		}
		for i := 0; i < 256; i++ {
			word := arch.In16(base + regData)
			off := sector*SectorSize + i*2
			buf[off] = byte(word)
			buf[off+1] = byte(word >> 8)
		}
	}
	return nil
}

// WriteSectors writes count sectors from buf to disk starting at lba.
func WriteSectors(drive uint8, lba uint32, count uint16, buf []byte) error {
	if drive >= maxDrives || !drives[drive].Present {
		return fmt.Errorf("ata: drive %d not present", drive)
	}
	if len(buf) < int(count)*SectorSize {
		return fmt.Errorf("ata: buffer too small for %d sectors", count)
	}
	base := baseFor(drive)
	if err := setupLBA(base, drive, lba, count); err != nil {
		return err
	}
	arch.Out8(base+regCommand, cmdWriteSectors)

	for sector := 0; sector < int(count); sector++ {
		if !waitUntil(base, statusDRQ) {
			return fmt.Errorf("ata: timeout waiting for DRQ on write")
		}
		for i := 0; i < 256; i++ {
			off := sector*SectorSize + i*2
			word := uint16(buf[off]) | uint16(buf[off+1])<<8
			arch.Out16(base+regData, word)
		}
	}
	if !waitWhile(base, statusBSY) {
		return fmt.Errorf("ata: timeout waiting for write completion")
	}
	return nil
}

func setupLBA(base uint16, drive uint8, lba uint32, count uint16) error {
	driveSelect := uint8(0xE0)
	if drive%2 == 1 {
		driveSelect = 0xF0
	}
	driveSelect |= uint8((lba >> 24) & 0x0F)

	if !waitUntil(base, statusRDY) {
		return fmt.Errorf("ata: timeout waiting for RDY")
	}
	arch.Out8(base+regDriveHead, driveSelect)
	arch.Out8(base+regSectorCount, uint8(count))
	arch.Out8(base+regLBALow, uint8(lba))
	arch.Out8(base+regLBAMid, uint8(lba>>8))
	arch.Out8(base+regLBAHigh, uint8(lba>>16))
	return nil
}

// LBAFromCHS converts a cylinder/head/sector triple to a 28-bit LBA
// using a fixed 63 sectors/track, 16 heads geometry; the drive's own
// geometry is not read from IDENTIFY or consulted.
func LBAFromCHS(cylinder uint32, head, sector uint8) uint32 {
	const sectorsPerTrack = 63
	const heads = 16
	return (cylinder*heads+uint32(head))*sectorsPerTrack + uint32(sector-1)
}

// CHSFromLBA is the inverse of LBAFromCHS.
func CHSFromLBA(lba uint32) (cylinder uint32, head, sector uint8) {
	const sectorsPerTrack = 63
	const heads = 16
	sector = uint8(lba%sectorsPerTrack) + 1
	head = uint8((lba / sectorsPerTrack) % heads)
	cylinder = lba / (sectorsPerTrack * heads)
	return
}
