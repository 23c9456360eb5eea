// Package models holds the value objects shared by the acquisition import
// pipeline: imaging configuration, trial boundaries and channel naming.
// Everything here is plain immutable data; the packages under pkg/ derive
// these values from the raw LabView export files.
package models

import "fmt"

// ImagingMode identifies the scanning configuration the AOL microscope
// used for a recording session.
type ImagingMode int

const (
	// Pointing acquires single-voxel points at fixed locations.
	Pointing ImagingMode = iota + 1

	// Miniscan acquires small 2D rectangular regions (also called patches).
	Miniscan

	// Volume acquires full 3D volumes.
	Volume
)

// Patch is the alternative name for Miniscan used by some versions of the
// acquisition software.
const Patch = Miniscan

// String returns the lowercase mode name as used in header files.
func (m ImagingMode) String() string {
	switch m {
	case Pointing:
		return "pointing"
	case Miniscan:
		return "miniscan"
	case Volume:
		return "volume"
	}
	return fmt.Sprintf("ImagingMode(%d)", int(m))
}

// Channel names for the photomultiplier gains recorded in the header.
const (
	ChannelRed   = "Red"
	ChannelGreen = "Green"
)

// ImagingInformation holds the imaging-related parameters found in a LabView
// header. The parameters live in different sections and under different key
// names depending on the software version; the header package normalises
// them into this one value object.
type ImagingInformation struct {
	// CyclesPerTrial is the number of complete scanner passes over all
	// configured ROIs within one trial.
	CyclesPerTrial int

	// Gains maps channel name (ChannelRed, ChannelGreen) to the PMT gain.
	Gains map[string]float64

	// FrameSize is the frame edge length in pixels.
	FrameSize int

	// FieldOfView is the physical extent of a full frame, in micrometres.
	FieldOfView float64

	// NumberOfMiniscans is the configured miniscan count.
	NumberOfMiniscans int

	// DwellTime is the per-pixel dwell time in microseconds, exactly as
	// recorded in the header.
	DwellTime float64
}

// TrialInterval is one trial's acquisition window, in seconds relative to
// the start of the session.
type TrialInterval struct {
	// Start is the trial start time in seconds.
	Start float64

	// End is the trial end time in seconds. Only meaningful when
	// EndUnresolved is false.
	End float64

	// EndUnresolved marks a final trial whose closing boundary was never
	// recorded (the acquisition stopped early). Callers must derive the
	// end time from an independent signal instead of reading End.
	EndUnresolved bool
}
