// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads ini configuration files onto command line flags.
//
// Keys of the DEFAULT, [gqc] and [location-iq] sections are flag names.
// Keys of the [google] section are flag names without their "google-"
// prefix. The [columns] section maps field names to column indexes and
// feeds the --columns flag. Keys naming flags the running command does not
// have are ignored.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"
)

// Section names.
const (
	SectionGQC        = "gqc"
	SectionLocationIQ = "location-iq"
	SectionGoogle     = "google"
	SectionColumns    = "columns"
)

// ColumnsFlag is the flag fed by the [columns] section.
const ColumnsFlag = "columns"

// DefaultPaths returns the configuration files looked up by default, in the
// order they are applied. Later files override earlier ones.
func DefaultPaths() []string {
	paths := []string{"/usr/local/etc/gqc.cfg"}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "gqc.cfg"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".gqc", "gqc.cfg"), filepath.Join(home, ".gqc", "config"))
	}

	return paths
}

// Apply reads the existing files among paths and sets the flags they name,
// except those already given on the command line. It returns the files read.
func Apply(flags *pflag.FlagSet, paths []string) ([]string, error) {
	explicit := map[string]bool{}
	flags.Visit(func(f *pflag.Flag) { explicit[f.Name] = true })

	var (
		read    []string
		sources []any
	)

	for _, p := range paths {
		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return read, fmt.Errorf("configuration file %s: %w", p, err)
		}

		read = append(read, p)
		sources = append(sources, p)
	}

	if len(sources) == 0 {
		return nil, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{}, sources[0], sources[1:]...)
	if err != nil {
		return read, fmt.Errorf("loading configuration: %w", err)
	}

	for _, section := range cfg.Sections() {
		switch name := section.Name(); name {
		case ini.DefaultSection, SectionGQC, SectionLocationIQ:
			for _, key := range section.Keys() {
				if err := set(flags, explicit, name, key.Name(), key.Value()); err != nil {
					return read, err
				}
			}
		case SectionGoogle:
			for _, key := range section.Keys() {
				flag := key.Name()
				if !strings.HasPrefix(flag, "google-") {
					flag = "google-" + flag
				}

				if err := set(flags, explicit, name, flag, key.Value()); err != nil {
					return read, err
				}
			}
		case SectionColumns:
			if err := setColumns(flags, explicit, section); err != nil {
				return read, err
			}
		default:
			log.Printf("Ignoring unknown configuration section [%s]\n", name)
		}
	}

	return read, nil
}

func set(flags *pflag.FlagSet, explicit map[string]bool, section, name, value string) error {
	// Files are shared by every command, so keys for flags this command
	// lacks are skipped.
	f := flags.Lookup(name)
	if f == nil {
		return nil
	}

	if explicit[name] {
		return nil
	}

	if value == "" && f.Value.Type() == "bool" {
		value = "false"
	}

	if err := flags.Set(name, value); err != nil {
		return fmt.Errorf("configuration %s.%s=%q: %w", section, name, value, err)
	}

	return nil
}

func setColumns(flags *pflag.FlagSet, explicit map[string]bool, section *ini.Section) error {
	keys := section.Keys()
	if len(keys) == 0 || explicit[ColumnsFlag] || flags.Lookup(ColumnsFlag) == nil {
		return nil
	}

	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key.Name() + "=" + strings.TrimSpace(key.Value())
	}

	if err := flags.Set(ColumnsFlag, strings.Join(pairs, ",")); err != nil {
		return fmt.Errorf("configuration [%s]: %w", SectionColumns, err)
	}

	return nil
}
