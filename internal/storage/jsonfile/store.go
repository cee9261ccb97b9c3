package jsonfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"

	"tourguide/internal/domain"
)

// Load reads the catalog file. A missing file is normal (fresh deployment) and
// yields an empty catalog; a corrupt file is logged and also yields an empty
// catalog. Neither is fatal: the page renders empty and the operator fixes the
// data. Input order is preserved and values are taken literally, with no
// dedup or casing normalization.
func Load(path string) domain.Catalog {
	var payload struct {
		Places      []domain.Place     `json:"places"`
		Itineraries []domain.Itinerary `json:"itineraries"`
	}
	if !readInto(path, &payload) {
		return domain.Catalog{Places: []domain.Place{}, Itineraries: []domain.Itinerary{}}
	}
	if payload.Places == nil {
		payload.Places = []domain.Place{}
	}
	if payload.Itineraries == nil {
		payload.Itineraries = []domain.Itinerary{}
	}
	return domain.Catalog{Places: payload.Places, Itineraries: payload.Itineraries}
}

// LoadTranslations reads the language -> (label -> localized label) table.
// Missing or corrupt file yields an empty table.
func LoadTranslations(path string) map[string]map[string]string {
	out := map[string]map[string]string{}
	if !readInto(path, &out) {
		return map[string]map[string]string{}
	}
	return out
}

// LoadUsers reads the seed username -> plaintext password pairs.
func LoadUsers(path string) map[string]string {
	out := map[string]string{}
	if !readInto(path, &out) {
		return map[string]string{}
	}
	return out
}

func readInto(path string, dst any) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", path).Err(err).Msg("data file unreadable, using empty dataset")
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("data file malformed, using empty dataset")
		return false
	}
	return true
}
