package platforms

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/domain"
)

// Registry resolves transmitted buoy names to deployment metadata loaded
// from a platform file. It implements domain.PlatformRegistry.
//
// The platform file is a JSON object keyed by platform id:
//
//	{
//	  "PMZA-RIKI": {
//	    "platform_name": "IML-4",
//	    "platform_type": "buoy",
//	    "latitude": 48.67,
//	    "longitude": -68.58,
//	    "description": "Rimouski station"
//	  }
//	}
type Registry struct {
	byID   map[string]domain.Platform
	byName map[string]domain.Platform
}

// Load reads and indexes a platform file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform file: %w", err)
	}

	var entries map[string]domain.Platform
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse platform file %s: %w", path, err)
	}

	r := &Registry{
		byID:   make(map[string]domain.Platform, len(entries)),
		byName: make(map[string]domain.Platform, len(entries)),
	}
	for id, p := range entries {
		p.PlatformID = id
		r.byID[normalize(id)] = p
		if p.PlatformName != "" {
			r.byName[normalize(p.PlatformName)] = p
		}
	}
	return r, nil
}

// Lookup resolves a transmitted buoy name against platform ids first, then
// platform names. Matching ignores case: controllers are inconsistent about
// capitalization across firmware versions.
func (r *Registry) Lookup(buoyName string) (domain.Platform, bool) {
	key := normalize(buoyName)
	if p, ok := r.byID[key]; ok {
		return p, true
	}
	p, ok := r.byName[key]
	return p, ok
}

// Len reports the number of loaded platforms.
func (r *Registry) Len() int {
	return len(r.byID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
