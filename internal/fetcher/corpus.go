package fetcher

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/edtech-lab/patent-cli/internal/model"
)

// LoadCorpus reads a consolidated JSON array of records written by a prior
// stage. A missing file or non-array payload is fatal for the stage.
func LoadCorpus(path string) ([]*model.Patent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read corpus %s", path)
	}

	var records []*model.Patent
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "fetcher: corpus %s is not a JSON array of records", path)
	}
	return records, nil
}

// SaveCorpus writes records as a single JSON array, via temp file + rename
// so readers never observe a partial corpus.
func SaveCorpus(path string, records []*model.Patent) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "fetcher: marshal corpus %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "fetcher: write temp %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "fetcher: rename %s", path)
	}
	return nil
}
