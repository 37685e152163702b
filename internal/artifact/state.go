package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"SolanaPredictor/internal/model"
)

// LoadInfo reads the metrics document from dir. Returns nil if no artifact has been saved yet.
func LoadInfo(dir string) (*model.ModelInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetricsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var info model.ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func encode(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
