// Package load reads batches of raw records from JSON and XLSX files.
package load

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/wanderplan/places-cli/internal/model"
)

// jsonEnvelope matches the export format of the upstream scrapers, which
// wraps records under a top-level key.
type jsonEnvelope struct {
	Records []model.RawRecord `json:"records"`
	Places  []model.RawRecord `json:"places"`
	Events  []model.RawRecord `json:"events"`
}

// ReadJSON reads raw records from a JSON file. Both a bare array and an
// envelope with a records/places/events key are accepted.
func ReadJSON(path string) ([]model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load: read json file")
	}

	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "load: parse json")
	}

	switch {
	case len(env.Records) > 0:
		return env.Records, nil
	case len(env.Places) > 0:
		return env.Places, nil
	case len(env.Events) > 0:
		return env.Events, nil
	}
	return nil, nil
}
