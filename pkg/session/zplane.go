package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ZPlane is one row of the Zplane_Pockels_Values.dat table, describing one
// imaging plane of the reference Z stack: its depth, the normalised depth,
// the Pockels laser power calibrated for that depth and the drive motor
// offset.
type ZPlane struct {
	Z          float64
	ZNorm      float64
	LaserPower float64
	ZMotor     float64
}

// ReadZPlaneTable reads the Z plane / Pockels value table. The file starts
// with two banner lines and a column header line, followed by tab-separated
// rows of four numeric columns; blank lines are skipped.
func ReadZPlaneTable(path string) ([]ZPlane, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Z plane file: %v", err)
	}
	defer f.Close()

	var planes []ZPlane
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNo++
		if lineNo <= 3 || line == "" {
			// Two banner lines plus the column header.
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("Z plane file %s line %d: expected 4 columns, got %d",
				path, lineNo, len(fields))
		}
		var values [4]float64
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("Z plane file %s line %d: %v", path, lineNo, err)
			}
			values[i] = v
		}
		planes = append(planes, ZPlane{
			Z:          values[0],
			ZNorm:      values[1],
			LaserPower: values[2],
			ZMotor:     values[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Z plane file: %v", err)
	}
	return planes, nil
}
