// Package project reads the optional draco.toml project manifest used by
// the driver.
package project

import (
	"os"

	"github.com/BurntSushi/toml"
	pkgerrors "github.com/pkg/errors"
)

// DefaultManifest is the manifest file name looked up next to the main
// source file.
const DefaultManifest = "draco.toml"

// Reference is one metadata assembly reference.
type Reference struct {
	Name           string `toml:"name"`
	PublicKeyToken string `toml:"public_key_token"`
}

// Manifest is the parsed project file.
type Manifest struct {
	Name       string      `toml:"name"`
	Main       string      `toml:"main"`
	Output     string      `toml:"output"`
	References []Reference `toml:"references"`
	Verbose    bool        `toml:"verbose"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading project manifest %s", path)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing project manifest %s", path)
	}
	return &m, nil
}

// LoadIfPresent loads a manifest when the file exists; a missing file
// yields an empty manifest.
func LoadIfPresent(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	return Load(path)
}
