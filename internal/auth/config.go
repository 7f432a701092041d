package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultKeysFile = "roomplan.keys.yaml"

type keysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth *bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Buildings map[string]buildingKeys `yaml:"buildings"`
	Admins    []string                `yaml:"admins"`
}

type buildingKeys struct {
	Keys []string `yaml:"keys"`
}

// Keyring maps API keys to the building they are scoped to and knows which
// user ids carry administrator rights.
type Keyring struct {
	AllowLocalhostWithoutAuth bool
	keyToBuilding             map[string]string
	admins                    map[string]struct{}
}

func ResolveKeysPath() string {
	if v := strings.TrimSpace(os.Getenv("ROOMPLAN_KEYS_FILE")); v != "" {
		return v
	}
	return filepath.Join(".", defaultKeysFile)
}

func LoadKeyringFromEnv() (*Keyring, error) {
	return LoadKeyring(ResolveKeysPath())
}

func LoadKeyring(path string) (*Keyring, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultKeyring(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, err := BootstrapDevKey(path, "dev"); err != nil {
				return nil, fmt.Errorf("bootstrap dev key: %w", err)
			}
			data, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read keys file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
	}
	var cfg keysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}
	ring := &Keyring{
		AllowLocalhostWithoutAuth: true,
		keyToBuilding:             make(map[string]string),
		admins:                    make(map[string]struct{}),
	}
	if cfg.DefaultPolicy.AllowLocalhostWithoutAuth != nil {
		ring.AllowLocalhostWithoutAuth = *cfg.DefaultPolicy.AllowLocalhostWithoutAuth
	}
	for building, keys := range cfg.Buildings {
		for _, key := range keys.Keys {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if existing, ok := ring.keyToBuilding[key]; ok && existing != building {
				return nil, fmt.Errorf("key reused across buildings: %q", key)
			}
			ring.keyToBuilding[key] = building
		}
	}
	for _, admin := range cfg.Admins {
		admin = strings.TrimSpace(admin)
		if admin != "" {
			ring.admins[admin] = struct{}{}
		}
	}
	return ring, nil
}

func defaultKeyring() *Keyring {
	return &Keyring{
		AllowLocalhostWithoutAuth: true,
		keyToBuilding:             make(map[string]string),
		admins:                    make(map[string]struct{}),
	}
}

// NewKeyring builds a keyring in memory, for tests and embedded use.
func NewKeyring(allowLocalhost bool, keyToBuilding map[string]string, admins []string) *Keyring {
	ring := &Keyring{
		AllowLocalhostWithoutAuth: allowLocalhost,
		keyToBuilding:             make(map[string]string, len(keyToBuilding)),
		admins:                    make(map[string]struct{}, len(admins)),
	}
	for k, v := range keyToBuilding {
		ring.keyToBuilding[k] = v
	}
	for _, a := range admins {
		ring.admins[a] = struct{}{}
	}
	return ring
}

func (k *Keyring) BuildingForKey(key string) (string, bool) {
	if k == nil {
		return "", false
	}
	building, ok := k.keyToBuilding[key]
	return building, ok
}

func (k *Keyring) IsAdmin(userID string) bool {
	if k == nil {
		return false
	}
	_, ok := k.admins[userID]
	return ok
}
