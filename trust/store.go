// Package trust implements the TrustStore backing the module loader's
// trust resolver: a YAML file with a global "trust_all" block plus
// per-module blocks, each holding trusted full keys, KeyAddress strings,
// and UNS-contract names.
//
// Built directly on gopkg.in/yaml.v3's idiomatic struct-tag mapping.
package trust

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Set is one block of trusted identifiers: raw public keys, KeyAddress
// strings, and UNS-contract names.
type Set struct {
	Keys      [][]byte `yaml:"keys,omitempty"`
	Addresses []string `yaml:"addresses,omitempty"`
	UNSNames  []string `yaml:"uns_names,omitempty"`
}

func (s Set) matches(pubKeyBytes []byte, address, unsName string) bool {
	for _, k := range s.Keys {
		if string(k) == string(pubKeyBytes) {
			return true
		}
	}
	for _, a := range s.Addresses {
		if address != "" && a == address {
			return true
		}
	}
	for _, n := range s.UNSNames {
		if unsName != "" && n == unsName {
			return true
		}
	}
	return false
}

// ModuleBlock names one or more modules and the Set trusted for them.
type ModuleBlock struct {
	Modules []string `yaml:"modules"`
	Set     `yaml:",inline"`
}

// Store is the parsed trust file: a global TrustAll block plus a list of
// per-module blocks.
type Store struct {
	mu       sync.Mutex
	TrustAll Set           `yaml:"trust_all"`
	Modules  []ModuleBlock `yaml:"modules,omitempty"`

	path string // where Save persists; empty if never loaded/assigned
}

// CandidatePaths returns the trust file search order:
// u8trust.yaml, ./.u8/u8trust.yaml, <home>/.u8/u8trust.yaml.
func CandidatePaths() []string {
	paths := []string{"u8trust.yaml", filepath.Join(".u8", "u8trust.yaml")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".u8", "u8trust.yaml"))
	}
	return paths
}

// Load reads the first existing trust file among CandidatePaths, or
// returns an empty Store bound to the last (home-directory) candidate if
// none exist yet.
func Load() (*Store, error) {
	paths := CandidatePaths()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read trust file %s: %w", p, err)
		}
		var s Store
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse trust file %s: %w", p, err)
		}
		s.path = p
		return &s, nil
	}
	s := &Store{path: paths[len(paths)-1]}
	return s, nil
}

// Matches reports whether pubKeyBytes/address/unsName is trusted for
// moduleName, checking the global trust_all block first and then any
// per-module block naming moduleName.
func (s *Store) Matches(moduleName string, pubKeyBytes []byte, address, unsName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TrustAll.matches(pubKeyBytes, address, unsName) {
		return true
	}
	for _, block := range s.Modules {
		for _, name := range block.Modules {
			if name == moduleName && block.Set.matches(pubKeyBytes, address, unsName) {
				return true
			}
		}
	}
	return false
}

// TrustAddress persists address as trusted for moduleName (or globally, if
// moduleName is empty), creating the trust file's parent directory
// (<home>/.u8/) if needed.
func (s *Store) TrustAddress(moduleName, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addAddress(moduleName, address)
	return s.save()
}

// TrustUNSName persists unsName as trusted for moduleName (or globally).
func (s *Store) TrustUNSName(moduleName, unsName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUNSName(moduleName, unsName)
	return s.save()
}

func (s *Store) addAddress(moduleName, address string) {
	if moduleName == "" {
		s.TrustAll.Addresses = append(s.TrustAll.Addresses, address)
		return
	}
	block := s.moduleBlock(moduleName)
	block.Addresses = append(block.Addresses, address)
}

func (s *Store) addUNSName(moduleName, unsName string) {
	if moduleName == "" {
		s.TrustAll.UNSNames = append(s.TrustAll.UNSNames, unsName)
		return
	}
	block := s.moduleBlock(moduleName)
	block.UNSNames = append(block.UNSNames, unsName)
}

func (s *Store) moduleBlock(moduleName string) *Set {
	for i := range s.Modules {
		for _, name := range s.Modules[i].Modules {
			if name == moduleName {
				return &s.Modules[i].Set
			}
		}
	}
	s.Modules = append(s.Modules, ModuleBlock{Modules: []string{moduleName}})
	return &s.Modules[len(s.Modules)-1].Set
}

// save writes the store back to its bound path. Caller must hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create trust file directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal trust file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write trust file %s: %w", s.path, err)
	}
	return nil
}
