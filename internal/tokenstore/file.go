package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when no profile name is given.
const DefaultProfile = "default"

// credentialsFile is the on-disk layout: one key set per named profile.
type credentialsFile struct {
	CurrentProfile string                       `yaml:"current_profile"`
	Profiles       map[string]map[string]string `yaml:"profiles"`
}

// FileBackend stores entries for one profile in a YAML file. The whole file is
// rewritten through a temp file and rename, so a Put is all-or-nothing.
type FileBackend struct {
	path    string
	profile string

	mu sync.Mutex
}

// DefaultPath returns $HOME/.finedge/credentials.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".finedge", "credentials.yaml"), nil
}

// NewFileBackend creates a backend for profile in the file at path.
// Empty arguments select DefaultPath and DefaultProfile.
func NewFileBackend(path, profile string) (*FileBackend, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &FileBackend{path: path, profile: profile}, nil
}

func (f *FileBackend) Name() string { return "file" }

// Path returns the credentials file location.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Get(_ context.Context, keys []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	stored := doc.Profiles[f.profile]
	for _, k := range keys {
		if v, ok := stored[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *FileBackend) Put(_ context.Context, entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	stored := doc.Profiles[f.profile]
	if stored == nil {
		stored = make(map[string]string, len(entries))
		doc.Profiles[f.profile] = stored
	}
	for _, e := range entries {
		stored[e.Key] = e.Value
	}
	doc.CurrentProfile = f.profile

	return f.save(doc)
}

func (f *FileBackend) Delete(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	stored, ok := doc.Profiles[f.profile]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(stored, k)
	}
	if len(stored) == 0 {
		delete(doc.Profiles, f.profile)
		if doc.CurrentProfile == f.profile {
			doc.CurrentProfile = ""
		}
	}

	return f.save(doc)
}

func (f *FileBackend) load() (*credentialsFile, error) {
	doc := &credentialsFile{Profiles: make(map[string]map[string]string)}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if doc.Profiles == nil {
		doc.Profiles = make(map[string]map[string]string)
	}
	return doc, nil
}

func (f *FileBackend) save(doc *credentialsFile) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, f.path)
}
