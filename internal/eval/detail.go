package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbeval/internal/models"
)

// DetailPath returns the ranking detail file of a model directory and split.
func DetailPath(modelDir, split string) string {
	return filepath.Join(modelDir, "ranking_detail_"+split+".json")
}

// WriteDetails writes details as a JSON array.
func WriteDetails(path string, details []models.RankingDetail) error {
	if details == nil {
		details = []models.RankingDetail{}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ranking detail: %w", err)
	}
	if err := json.NewEncoder(f).Encode(details); err != nil {
		f.Close()
		return fmt.Errorf("write ranking detail: %w", err)
	}
	return f.Close()
}

// ReadDetails reads a ranking detail file.
func ReadDetails(path string) ([]models.RankingDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var details []models.RankingDetail
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return details, nil
}
