package cli

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mistakeknot/roomplan/internal/auth"
)

func newInitKeysCmd() *cobra.Command {
	var keysPath string

	cmd := &cobra.Command{
		Use:   "init-keys <building>",
		Short: "Generate an API key for a building and append it to the keys file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keysPath
			if path == "" {
				path = auth.ResolveKeysPath()
			}
			key, err := InitKeysFile(path, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&keysPath, "keys-file", "", "path to the keys file (default roomplan.keys.yaml)")
	return cmd
}

type keysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth *bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Buildings map[string]buildingKeys `yaml:"buildings"`
	Admins    []string                `yaml:"admins,omitempty"`
}

type buildingKeys struct {
	Keys []string `yaml:"keys"`
}

// InitKeysFile appends a fresh key for building to the keys file at path,
// creating the file if needed, and returns the generated key.
func InitKeysFile(path, building string) (string, error) {
	path = strings.TrimSpace(path)
	building = strings.TrimSpace(building)
	if path == "" {
		return "", fmt.Errorf("keys file path required")
	}
	if building == "" {
		return "", fmt.Errorf("building required")
	}

	cfg, err := loadKeysFile(path)
	if err != nil {
		return "", err
	}
	if cfg.Buildings == nil {
		cfg.Buildings = make(map[string]buildingKeys)
	}
	key, err := generateKey()
	if err != nil {
		return "", err
	}
	bk := cfg.Buildings[building]
	bk.Keys = append(bk.Keys, key)
	cfg.Buildings[building] = bk
	if cfg.DefaultPolicy.AllowLocalhostWithoutAuth == nil {
		val := true
		cfg.DefaultPolicy.AllowLocalhostWithoutAuth = &val
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("marshal keys file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write keys file: %w", err)
	}
	return key, nil
}

func loadKeysFile(path string) (keysFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return keysFile{}, nil
		}
		return keysFile{}, fmt.Errorf("read keys file: %w", err)
	}
	var cfg keysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return keysFile{}, fmt.Errorf("parse keys file: %w", err)
	}
	return cfg, nil
}

func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
