package burnindex

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by StoreConfig.Backend.
const (
	BackendPebble  = "pebble"
	BackendBadger  = "badger"
	BackendLevelDB = "leveldb"
)

// StoreConfig selects and locates the storage engine.
type StoreConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Config is the full burn index configuration.
type Config struct {
	Store        StoreConfig `yaml:"store"`
	SinkAddress  string      `yaml:"sink_address"`
	CacheEntries int         `yaml:"cache_entries"`
}

// DefaultConfig returns a Pebble-backed configuration rooted at ./burnindex-data.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendPebble,
			Path:    "burnindex-data",
		},
		SinkAddress:  DefaultSinkAddress,
		CacheEntries: 1024,
	}
}

// LoadConfig reads path as YAML over DefaultConfig, then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %q", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %q", path)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from BURNINDEX_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv("BURNINDEX_BACKEND")); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("BURNINDEX_PATH")); v != "" {
		c.Store.Path = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("BURNINDEX_IN_MEMORY"))); v != "" {
		c.Store.InMemory = v == "1" || v == "true" || v == "yes" || v == "on"
	}
	if v := strings.TrimSpace(os.Getenv("BURNINDEX_SINK_ADDRESS")); v != "" {
		c.SinkAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("BURNINDEX_CACHE_ENTRIES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid BURNINDEX_CACHE_ENTRIES %q", v)
		}
		c.CacheEntries = n
	}
	return nil
}

// Validate rejects configurations that cannot open a store.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendPebble, BackendBadger, BackendLevelDB:
	default:
		return errors.Newf("unknown backend %q (want %s, %s or %s)",
			c.Store.Backend, BackendPebble, BackendBadger, BackendLevelDB)
	}
	if !c.Store.InMemory && strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store path is required unless in_memory is set")
	}
	if c.SinkAddress == "" {
		return errors.New("sink_address must not be empty")
	}
	if len(c.SinkAddress) > MaxIdentifierLen {
		return errors.Newf("sink_address longer than %d bytes", MaxIdentifierLen)
	}
	if c.CacheEntries < 0 {
		return errors.Newf("cache_entries must not be negative, got %d", c.CacheEntries)
	}
	return nil
}

// OpenStore opens the backend named by cfg.
func OpenStore(cfg StoreConfig) (KVStore, error) {
	var (
		store KVStore
		err   error
	)
	switch cfg.Backend {
	case BackendPebble, "":
		if cfg.InMemory {
			store, err = NewInMemoryPebbleStore()
		} else {
			store, err = NewPebbleStore(cfg.Path)
		}
	case BackendBadger:
		if cfg.InMemory {
			store, err = NewInMemoryBadgerStore()
		} else {
			store, err = NewBadgerStore(cfg.Path)
		}
	case BackendLevelDB:
		if cfg.InMemory {
			store, err = NewInMemoryLevelDBStore()
		} else {
			store, err = NewLevelDBStore(cfg.Path)
		}
	default:
		return nil, errors.Newf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// StoreFactoryFor returns a StoreFactory opening fresh stores per cfg.
func StoreFactoryFor(cfg StoreConfig) StoreFactory {
	return func() (KVStore, error) {
		return OpenStore(cfg)
	}
}

// Open opens the configured store and returns a Burner over it with a
// HoldingSink. The caller closes the Burner's store.
func Open(cfg Config) (*Burner, *HoldingSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	sink := NewHoldingSink()
	b := NewBurner(store, sink)
	b.SetSinkAddress(cfg.SinkAddress)
	b.SetCache(NewTotalCache(cfg.CacheEntries))
	return b, sink, nil
}
