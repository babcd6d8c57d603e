package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"GapCast/internal/domain/models"
	applogger "GapCast/pkg/logger"
)

// FileRegistry stores fitted models on disk, one blob plus one JSON meta
// file per (symbol, tag) pair. Layout under dir:
//
//	<SYM>_<tag>.<ext>   model blob (serializer-defined encoding)
//	<SYM>_<tag>.json    metadata
//
// Save is atomic per file via rename, so a crashed writer never leaves a
// truncated model for readers.
type FileRegistry struct {
	dir string
	ser Serializer
	log *applogger.Logger
}

func NewFileRegistry(dir string, ser Serializer, log *applogger.Logger) (*FileRegistry, error) {
	if dir == "" {
		dir = "models_store"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir %s: %w", dir, err)
	}
	if ser == nil {
		ser = JSONModelSerializer{}
	}
	return &FileRegistry{dir: dir, ser: ser, log: log}, nil
}

func (r *FileRegistry) modelPath(symbol, tag string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.%s", strings.ToUpper(symbol), tag, r.ser.Ext()))
}

func (r *FileRegistry) metaPath(symbol, tag string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.json", strings.ToUpper(symbol), tag))
}

// Save writes the model blob and its metadata, returning both paths.
func (r *FileRegistry) Save(symbol, tag string, model any, meta *models.ModelMeta) (string, string, error) {
	blob, err := r.ser.Serialize(model)
	if err != nil {
		return "", "", fmt.Errorf("save %s/%s: %w", symbol, tag, err)
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("save meta %s/%s: %w", symbol, tag, err)
	}

	mpath := r.modelPath(symbol, tag)
	jpath := r.metaPath(symbol, tag)
	if err := writeAtomic(mpath, blob); err != nil {
		return "", "", fmt.Errorf("write model %s: %w", mpath, err)
	}
	if err := writeAtomic(jpath, metaBytes); err != nil {
		return "", "", fmt.Errorf("write meta %s: %w", jpath, err)
	}

	if r.log != nil {
		r.log.Debug("model persisted",
			applogger.String("symbol", strings.ToUpper(symbol)),
			applogger.String("tag", tag),
			applogger.String("model_path", mpath),
		)
	}
	return mpath, jpath, nil
}

// Load returns the persisted model and metadata, or (nil, nil, nil) when the
// pair has never been trained. Absence is not an error; callers train on it.
func (r *FileRegistry) Load(symbol, tag string) (any, *models.ModelMeta, error) {
	mpath := r.modelPath(symbol, tag)
	jpath := r.metaPath(symbol, tag)

	blob, err := os.ReadFile(mpath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read model %s: %w", mpath, err)
	}
	metaBytes, err := os.ReadFile(jpath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read meta %s: %w", jpath, err)
	}

	model, err := r.ser.Deserialize(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("decode model %s: %w", mpath, err)
	}
	var meta models.ModelMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode meta %s: %w", jpath, err)
	}
	return model, &meta, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
