package probe

import (
	"fmt"
	"regexp"
	"strconv"
)

// CropRegion is a picture rectangle reported by cropdetect.
type CropRegion struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Filter returns the crop filter expression for the region.
func (c CropRegion) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", c.Width, c.Height, c.X, c.Y)
}

// reCrop matches cropdetect's suggestion, e.g. "crop=1920:800:0:140".
// Black frames can produce negative values, so signs are accepted here and
// rejected by ParseCrop.
var reCrop = regexp.MustCompile(`crop=(-?\d+):(-?\d+):(-?\d+):(-?\d+)`)

// ParseCrop returns the last crop suggestion in a cropdetect report. No
// suggestion, or one without visible picture, is a *CropParseError.
func ParseCrop(report string) (CropRegion, error) {
	matches := reCrop.FindAllStringSubmatch(report, -1)
	if len(matches) == 0 {
		return CropRegion{}, &CropParseError{Reason: "no crop line found"}
	}
	m := matches[len(matches)-1]

	var vals [4]int
	for i := range vals {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return CropRegion{}, &CropParseError{Reason: "invalid number in " + m[0]}
		}
		vals[i] = n
	}
	region := CropRegion{Width: vals[0], Height: vals[1], X: vals[2], Y: vals[3]}
	if region.Width <= 0 || region.Height <= 0 || region.X < 0 || region.Y < 0 {
		return CropRegion{}, &CropParseError{Reason: "no picture detected (" + m[0] + ")"}
	}
	return region, nil
}
