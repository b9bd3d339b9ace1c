package settings

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/flock"
)

// fileDocument is the on-disk layout of the settings file.
//
//	modifiers:
//	  brand_voice: {enabled: true, text: "..."}
//	  stop_words:  {enabled: false, text: ""}
//	features:
//	  post_title: {enabled: true, override: "..."}
type fileDocument struct {
	Modifiers domain.GlobalModifiers            `mapstructure:"modifiers" yaml:"modifiers"`
	Features  map[string]domain.FeatureSettings `mapstructure:"features" yaml:"features,omitempty"`
}

// FileStore reads settings from a YAML file. The file is re-read on every
// Snapshot call. A missing file yields default settings.
//
// Writes hold an exclusive lock on <path>.lock and replace the file with a
// rename, so readers in other processes never see a partial document.
type FileStore struct {
	path string
	mu   sync.Mutex // serializes read-modify-write cycles within the process
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file path.
func (s *FileStore) Path() string {
	return s.path
}

// Snapshot reads the settings file.
func (s *FileStore) Snapshot(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}
	doc, err := s.read()
	if err != nil {
		return domain.Settings{}, err
	}
	features, err := parseFeatures(doc.Features)
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{Features: features, Modifiers: doc.Modifiers}, nil
}

// SetFeature updates one feature in the settings file.
func (s *FileStore) SetFeature(ctx context.Context, feature domain.Feature, cfg domain.FeatureSettings) error {
	if _, err := domain.ParseFeature(string(feature)); err != nil {
		return err
	}
	return s.update(ctx, func(doc *fileDocument) {
		if doc.Features == nil {
			doc.Features = make(map[string]domain.FeatureSettings)
		}
		doc.Features[string(feature)] = cfg
	})
}

// SetModifiers replaces the global modifiers in the settings file.
func (s *FileStore) SetModifiers(ctx context.Context, mods domain.GlobalModifiers) error {
	return s.update(ctx, func(doc *fileDocument) {
		doc.Modifiers = mods
	})
}

func (s *FileStore) update(ctx context.Context, mutate func(*fileDocument)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := flock.Acquire(ctx, s.path+".lock",
		constants.SettingsLockTimeout, constants.SettingsLockRetry, inkerrors.ErrSettingsLocked)
	if err != nil {
		return inkerrors.Wrapf(err, "failed to lock settings file %s", s.path)
	}
	defer func() { _ = lock.Release() }()

	doc, err := s.read()
	if err != nil {
		return err
	}
	mutate(&doc)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return inkerrors.Wrap(err, "failed to encode settings")
	}
	if err := atomicWrite(s.path, data); err != nil {
		return inkerrors.Wrapf(err, "failed to write settings file %s", s.path)
	}
	return nil
}

// atomicWrite writes data next to path and renames it into place.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// read loads the settings file with a fresh viper instance.
func (s *FileStore) read() (fileDocument, error) {
	var doc fileDocument
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return doc, inkerrors.Wrapf(err, "failed to read settings file %s", s.path)
	}
	if err := v.Unmarshal(&doc); err != nil {
		return doc, inkerrors.Wrapf(err, "failed to decode settings file %s", s.path)
	}
	return doc, nil
}
