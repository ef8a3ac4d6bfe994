package diffusion

import (
	"strings"

	"localgen/device"
)

// Family groups models that share an architecture and an optional-API
// surface.
type Family string

const (
	FamilyFlux Family = "flux"
	FamilySDXL Family = "sdxl"
	FamilySD   Family = "sd"
	FamilyLCM  Family = "lcm"
)

// Capabilities describes which optional generation features a model
// family supports. Consulted before a call is built, so an unsupported
// feature is simply omitted rather than discovered through a failed
// call.
type Capabilities struct {
	// StepCallback: the pipeline reports per-step denoising progress.
	StepCallback bool
	// GuidanceScale: the pipeline accepts classifier-free guidance.
	GuidanceScale bool
}

// familyCapabilities is the static per-family feature table. Flux
// pipelines take neither a guidance scale nor a step callback; when a
// family lacks step callbacks, the dispatcher falls back to one coarse
// progress event per image.
var familyCapabilities = map[Family]Capabilities{
	FamilyFlux: {StepCallback: false, GuidanceScale: false},
	FamilySDXL: {StepCallback: true, GuidanceScale: true},
	FamilySD:   {StepCallback: true, GuidanceScale: true},
	FamilyLCM:  {StepCallback: true, GuidanceScale: true},
}

// FamilyOf classifies a model id into a family. Unrecognized ids fall
// back to the plain SD family, which carries the full feature surface.
func FamilyOf(modelID string) Family {
	id := strings.ToLower(modelID)
	switch {
	case device.IsFluxClass(id):
		return FamilyFlux
	case strings.Contains(id, "lcm"):
		return FamilyLCM
	case strings.Contains(id, "xl"):
		return FamilySDXL
	default:
		return FamilySD
	}
}

// CapabilitiesFor returns the capability set for a model id.
func CapabilitiesFor(modelID string) Capabilities {
	return familyCapabilities[FamilyOf(modelID)]
}
