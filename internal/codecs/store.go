package codecs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"media-inspector/internal/database"
	"media-inspector/internal/logging"
)

// ErrUnavailable means the codec configuration could not be loaded, so
// files cannot be classified.
var ErrUnavailable = errors.New("codec configuration unavailable")

// Persister is the key-value storage behind a Store.
type Persister interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// Store is the process-wide accessor for the current codec configuration.
// Readers always get the latest successfully saved value.
type Store struct {
	mu        sync.RWMutex
	cfg       Config
	loaded    bool
	loadErr   error
	persister Persister
}

// NewStore creates a store backed by persister. A nil persister keeps the
// configuration in memory only, starting from Defaults.
func NewStore(persister Persister) *Store {
	s := &Store{persister: persister}
	if persister == nil {
		s.cfg = Defaults()
		s.loaded = true
	}
	return s
}

// Load reads the stored configuration. When none is stored yet, the defaults
// are saved and used. A stored value that cannot be decoded makes the store
// unavailable until a successful Update.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	value, err := s.persister.GetMetadata(ctx, database.MetadataCodecConfig)
	switch {
	case errors.Is(err, database.ErrNotFound) || (err == nil && value == ""):
		logging.Info("No codec configuration stored, saving defaults")
		return s.Update(ctx, Defaults())
	case err != nil:
		return s.fail(fmt.Errorf("load codec config: %w", err))
	}

	cfg, err := ParseConfig([]byte(value))
	if err != nil {
		return s.fail(fmt.Errorf("decode stored codec config: %w", err))
	}

	s.mu.Lock()
	s.cfg = cfg
	s.loaded = true
	s.loadErr = nil
	s.mu.Unlock()

	logging.Info("Loaded codec configuration: %d audio, %d video problematic codecs",
		len(cfg.ProblematicCodecs.Audio), len(cfg.ProblematicCodecs.Video))
	return nil
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.loaded = false
	s.loadErr = err
	s.mu.Unlock()
	logging.Error("%v", err)
	return err
}

// Current returns a copy of the current configuration.
func (s *Store) Current() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		if s.loadErr != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrUnavailable, s.loadErr)
		}
		return Config{}, ErrUnavailable
	}
	return s.cfg.clone(), nil
}

// Update persists cfg and then makes it current. The in-memory value is left
// unchanged when persisting fails.
func (s *Store) Update(ctx context.Context, cfg Config) error {
	cfg = cfg.Normalize()

	if s.persister != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode codec config: %w", err)
		}
		if err := s.persister.SetMetadata(ctx, database.MetadataCodecConfig, string(data)); err != nil {
			return fmt.Errorf("save codec config: %w", err)
		}
	}

	s.mu.Lock()
	s.cfg = cfg
	s.loaded = true
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

// Import loads a configuration file into the store. Unless overwrite is set,
// an already stored configuration wins over the file.
func (s *Store) Import(ctx context.Context, path string, overwrite bool) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}

	if !overwrite && s.persister != nil {
		value, err := s.persister.GetMetadata(ctx, database.MetadataCodecConfig)
		if err == nil && value != "" {
			logging.Info("Codec configuration already stored, not importing %s", path)
			return nil
		}
	}

	if err := s.Update(ctx, cfg); err != nil {
		return err
	}
	logging.Info("Imported codec configuration from %s", path)
	return nil
}

func (c Config) clone() Config {
	return Config{
		ProblematicCodecs: Lists{
			Audio: append(make([]string, 0, len(c.ProblematicCodecs.Audio)), c.ProblematicCodecs.Audio...),
			Video: append(make([]string, 0, len(c.ProblematicCodecs.Video)), c.ProblematicCodecs.Video...),
		},
		Version: c.Version,
	}
}
