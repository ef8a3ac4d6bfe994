package diffusion

// Dimensions is a pixel width/height pair.
type Dimensions struct {
	Width  int
	Height int
}

// Portrait target dimensions associated with the "9:16" label. 9:16
// output is forced to exactly this size after generation; SDXL-class
// models round dimensions internally and may come back slightly off.
const (
	PortraitWidth  = 768
	PortraitHeight = 1344
)

// PortraitLabel is the aspect-ratio label that triggers the exact-size
// resize and serves as the fallback for unknown labels.
const PortraitLabel = "9:16"

// dimensionTable maps aspect-ratio labels to SDXL-friendly dimensions
// (multiples of 8, near the 1-megapixel sweet spot).
var dimensionTable = map[string]Dimensions{
	"9:16": {PortraitWidth, PortraitHeight},
	"16:9": {1344, 768},
	"1:1":  {1024, 1024},
	"4:3":  {1152, 896},
	"3:4":  {896, 1152},
}

// ResolveDimensions maps an aspect-ratio label to pixel dimensions.
// Unknown labels resolve to the portrait default; this never fails.
func ResolveDimensions(label string) Dimensions {
	if d, ok := dimensionTable[label]; ok {
		return d
	}
	return dimensionTable[PortraitLabel]
}
