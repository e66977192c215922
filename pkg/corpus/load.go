package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lumiebot/lumie/pkg/logger"
)

// Load reads every *.json file under dir (each an array of records),
// merges them and builds the corpus. Any unreadable or malformed file is
// an error: the service must not come up with a partial corpus.
func Load(dir string, opts Options) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read training dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no training files in %s", dir)
	}
	sort.Strings(files)

	var records []Record
	for _, path := range files {
		recs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		logger.DebugCF("corpus", "Loaded training file", map[string]interface{}{
			"file":    path,
			"records": len(recs),
		})
		records = append(records, recs...)
	}

	c, err := New(records, opts)
	if err != nil {
		return nil, err
	}

	logger.InfoCF("corpus", "Corpus built", map[string]interface{}{
		"files":      len(files),
		"intents":    c.Len(),
		"utterances": c.UtteranceCount(),
		"contexts":   len(c.Contexts()),
	})
	return c, nil
}

func loadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read training file %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse training file %s: %w", path, err)
	}
	return records, nil
}
