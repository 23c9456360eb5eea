// Package signature produces compact textual signatures of imported session
// records, for output regression testing. A signature is small enough to
// store in version control yet detailed enough to tell whether a change in
// the import engine altered the session content.
package signature

import (
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"labview2nwb/pkg/session"
)

// Generate builds the signature of one imported session. The output is
// deterministic: map-derived entries are sorted and floating point values
// are printed with a fixed format.
func Generate(rec *session.Records) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("session: %s", rec.SessionID)
	line("version: %s", rec.Version)
	line("mode: %s", rec.Mode)
	if rec.Context != nil {
		line("experimenter: %s <%s>", rec.Context.User.Name, rec.Context.User.Email)
	}
	if img := rec.Imaging; img != nil {
		line("imaging: cycles_per_trial=%d frame_size=%d field_of_view=%g miniscans=%d dwell_us=%g",
			img.CyclesPerTrial, img.FrameSize, img.FieldOfView, img.NumberOfMiniscans, img.DwellTime)
		channels := make([]string, 0, len(img.Gains))
		for name := range img.Gains {
			channels = append(channels, name)
		}
		sort.Strings(channels)
		for _, name := range channels {
			line("gain %s: %g", name, img.Gains[name])
		}
	}
	line("header fields: %d", len(rec.HeaderFields))
	for i, trial := range rec.Trials {
		end := "unresolved"
		if !trial.EndUnresolved {
			end = fmt.Sprintf("%.6f", trial.End)
		}
		line("trial %04d: %.6f -> %s", i+1, trial.Start, end)
	}
	for i, roi := range rec.Rois {
		frame := ""
		if i < len(rec.ReferenceFrames) {
			frame = rec.ReferenceFrames[i]
		}
		line("roi %04d: x=[%d,%d] y=[%d,%d] z=[%g,%g] angle=%g pixels=%d frame=%q",
			roi.Index, roi.XStart, roi.XStop, roi.YStart, roi.YStop,
			roi.ZStart, roi.ZStop, roi.AngleDeg, roi.NumPixels, frame)
	}
	if t := rec.Timings; t != nil {
		line("cycle time: %.9f", t.CycleTime)
		for i := range t.PixelTimeOffsets {
			tensor := &t.PixelTimeOffsets[i]
			line("timing %04d: shape=(%d,%d,%d) crc=%08x",
				i, tensor.Cycles, tensor.Lines, tensor.Pixels, tensorChecksum(tensor.Data))
		}
	}
	line("zplanes: %d", len(rec.ZPlanes))
	if rec.Speed != nil {
		line("speed samples: %d", len(rec.Speed.Times))
	}
	return b.String()
}

// tensorChecksum summarises a tensor's values so the signature catches any
// numeric change without storing the full array.
func tensorChecksum(data []float64) uint32 {
	crc := crc32.NewIEEE()
	buf := make([]byte, 8)
	for _, v := range data {
		bits := math.Float64bits(v)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		crc.Write(buf)
	}
	return crc.Sum32()
}

// Diff compares two signatures line by line and returns a human-readable
// report of the differences, or the empty string when they match.
func Diff(want, got string) string {
	return cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n"))
}

// Save writes a signature next to the reference data.
func Save(path, sig string) error {
	if err := os.WriteFile(path, []byte(sig), 0o644); err != nil {
		return fmt.Errorf("failed to save signature: %v", err)
	}
	return nil
}

// CompareToFile checks a session against a stored reference signature and
// returns the diff, or the empty string when the session still matches.
func CompareToFile(rec *session.Records, path string) (string, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reference signature: %v", err)
	}
	return Diff(string(want), Generate(rec)), nil
}
