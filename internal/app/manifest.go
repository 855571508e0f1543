package app

import (
	"net/http"

	"github.com/manakshia-steel/manakshia/internal/platform/httpx"
)

// Manifest describes the application to API clients.
type Manifest struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Publisher   string `json:"publisher"`
	Description string `json:"description"`
	Email       string `json:"email"`
	License     string `json:"license"`
	Environment string `json:"environment,omitempty"`
}

// DefaultManifest is served at /api/meta.
var DefaultManifest = Manifest{
	Name:        "manakshia_steel",
	Title:       "Manakshia Steel",
	Publisher:   "Blue Phoenix",
	Description: "Manakshia Steel manufacture",
	Email:       "bluephoenix00995@gmail.com",
	License:     "mit",
}

func manifestHandler(cfg *Config) http.HandlerFunc {
	manifest := DefaultManifest
	if cfg != nil {
		manifest.Environment = cfg.AppEnv
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, manifest)
	}
}
