// Package modelstore manages the local model-artifact cache: the
// registry of known models, the on-disk cache probe, and the downloader
// that fills the cache on a miss.
package modelstore

import (
	"strings"

	"localgen/core"
)

// ModelSpec describes one downloadable model artifact.
type ModelSpec struct {
	// ID is the model identifier, e.g. "black-forest-labs/FLUX.1-schnell".
	ID string
	// Filename is the artifact name inside the cache entry.
	Filename string
	// URL is the artifact download location.
	URL string
	// SizeBytes is the expected artifact size, used for disk estimates.
	// Zero means unknown.
	SizeBytes int64
	// SHA256 is the expected checksum, empty to skip verification.
	SHA256 string
}

// defaultRegistry lists the models recommended for local generation,
// best first.
var defaultRegistry = []ModelSpec{
	{
		ID:        "black-forest-labs/FLUX.1-schnell",
		Filename:  "flux1-schnell.safetensors",
		URL:       "https://huggingface.co/black-forest-labs/FLUX.1-schnell/resolve/main/flux1-schnell.safetensors",
		SizeBytes: 23 * core.BytesPerGB,
	},
	{
		ID:        "black-forest-labs/FLUX.1-dev",
		Filename:  "flux1-dev.safetensors",
		URL:       "https://huggingface.co/black-forest-labs/FLUX.1-dev/resolve/main/flux1-dev.safetensors",
		SizeBytes: 23 * core.BytesPerGB,
	},
	{
		ID:        "stabilityai/sdxl-turbo",
		Filename:  "sd_xl_turbo_1.0_fp16.safetensors",
		URL:       "https://huggingface.co/stabilityai/sdxl-turbo/resolve/main/sd_xl_turbo_1.0_fp16.safetensors",
		SizeBytes: 6*core.BytesPerGB + core.BytesPerGB/2,
	},
	{
		ID:        "stabilityai/stable-diffusion-xl-base-1.0",
		Filename:  "sd_xl_base_1.0.safetensors",
		URL:       "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors",
		SizeBytes: 6*core.BytesPerGB + core.BytesPerGB/2,
	},
	{
		ID:        "SimianLuo/LCM_Dreamshaper_v7",
		Filename:  "LCM_Dreamshaper_v7_4k.safetensors",
		URL:       "https://huggingface.co/SimianLuo/LCM_Dreamshaper_v7/resolve/main/LCM_Dreamshaper_v7_4k.safetensors",
		SizeBytes: 4 * core.BytesPerGB,
	},
	{
		ID:        "runwayml/stable-diffusion-v1-5",
		Filename:  "v1-5-pruned-emaonly.safetensors",
		URL:       "https://huggingface.co/runwayml/stable-diffusion-v1-5/resolve/main/v1-5-pruned-emaonly.safetensors",
		SizeBytes: 4*core.BytesPerGB + 300*core.BytesPerMB,
	},
}

// approxSizes maps model ids to human-readable download sizes shown in
// progress messages before a download starts.
var approxSizes = map[string]string{
	"black-forest-labs/FLUX.1-schnell":              "~23 GB",
	"black-forest-labs/FLUX.1-dev":                  "~23 GB",
	"stabilityai/stable-diffusion-xl-base-1.0":      "~6.5 GB",
	"stabilityai/sdxl-turbo":                        "~6.5 GB",
	"stabilityai/stable-diffusion-3-medium":         "~12 GB",
	"runwayml/stable-diffusion-v1-5":                "~4.3 GB",
	"stabilityai/stable-diffusion-2-1":              "~5.2 GB",
	"SimianLuo/LCM_Dreamshaper_v7":                  "~4.0 GB",
}

// ApproxDownloadSize returns the approximate download size for a model,
// or a generic range for models not in the table.
func ApproxDownloadSize(modelID string) string {
	if s, ok := approxSizes[modelID]; ok {
		return s
	}
	return "~4-7 GB"
}

// RecommendedModels returns the ids of models recommended for local
// generation, best first.
func RecommendedModels() []string {
	out := make([]string, len(defaultRegistry))
	for i, spec := range defaultRegistry {
		out[i] = spec.ID
	}
	return out
}

// cacheEntryName maps a model id to its cache directory name. Slashes
// in the id are not usable in a single path element.
func cacheEntryName(modelID string) string {
	return strings.ReplaceAll(modelID, "/", "--")
}
