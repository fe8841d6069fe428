// Package model holds the trained TF-IDF vectorizer, linear classifier and
// label decoder, the on-disk artifact layout they are published in, and the
// provider that loads them once per process.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/specialist-recommender/internal/domain"
)

const (
	currentLink  = "current"
	releasesDir  = "releases"
	manifestFile = "manifest.json"
)

// Bundle is a load-compatible triple of artifacts. It is immutable once built.
type Bundle struct {
	Vectorizer *Vectorizer
	Classifier *LinearClassifier
	Labels     *LabelEncoder
	Version    string
	LoadedAt   time.Time
}

// Manifest describes a published release
type Manifest struct {
	Version   string             `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	Classes   []string           `json:"classes"`
	Features  int                `json:"features"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// NewBundle validates the three artifacts and checks they fit together
func NewBundle(vec *Vectorizer, clf *LinearClassifier, labels *LabelEncoder, version string) (*Bundle, error) {
	b := &Bundle{
		Vectorizer: vec,
		Classifier: clf,
		Labels:     labels,
		Version:    version,
		LoadedAt:   time.Now(),
	}
	if err := b.CheckCompatible(); err != nil {
		return nil, err
	}
	return b, nil
}

// CheckCompatible verifies feature dimensions and label counts agree
func (b *Bundle) CheckCompatible() error {
	if b.Vectorizer == nil || b.Classifier == nil || b.Labels == nil {
		return fmt.Errorf("bundle is missing an artifact")
	}
	if err := b.Vectorizer.Validate(); err != nil {
		return fmt.Errorf("vectorizer: %w", err)
	}
	if err := b.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := b.Labels.Validate(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	if b.Vectorizer.Dim() != b.Classifier.Dim() {
		return fmt.Errorf("vectorizer produces %d features but classifier expects %d",
			b.Vectorizer.Dim(), b.Classifier.Dim())
	}
	if b.Classifier.NumClasses() != b.Labels.Len() {
		return fmt.Errorf("classifier predicts %d classes but label decoder knows %d",
			b.Classifier.NumClasses(), b.Labels.Len())
	}
	return nil
}

// Store reads and publishes artifacts under a model directory. Published
// releases live in releases/<version>/ and the "current" symlink selects
// the active one. Without that link the three files are read straight
// from the directory.
type Store struct {
	dir   string
	names domain.ArtifactNames
}

// NewStore creates a store rooted at dir
func NewStore(dir string, names domain.ArtifactNames) *Store {
	return &Store{dir: dir, names: names.OrDefault()}
}

// Dir returns the model directory
func (s *Store) Dir() string {
	return s.dir
}

// resolve returns the directory holding the active artifacts and its version
func (s *Store) resolve() (string, string, error) {
	link := filepath.Join(s.dir, currentLink)
	if _, err := os.Lstat(link); err == nil {
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			return "", "", err
		}
		return target, filepath.Base(target), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", "", err
	}

	info, err := os.Stat(filepath.Join(s.dir, s.names.Vectorizer))
	if err != nil {
		return "", "", err
	}
	return s.dir, fmt.Sprintf("local-%d", info.ModTime().UnixNano()), nil
}

// Load reads the active artifacts. Missing or mutually incompatible files
// yield a ModelNotFoundError; undecodable files yield a ProcessingError.
func (s *Store) Load(ctx context.Context) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, version, err := s.resolve()
	if err != nil {
		return nil, domain.NewModelNotFoundError(s.dir, "artifacts not found", err)
	}

	vec := &Vectorizer{}
	clf := &LinearClassifier{}
	labels := &LabelEncoder{}
	files := []struct {
		name string
		into interface{}
	}{
		{s.names.Vectorizer, vec},
		{s.names.Classifier, clf},
		{s.names.Labels, labels},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(dir, f.name), f.into); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, domain.NewModelNotFoundError(dir, fmt.Sprintf("missing %s", f.name), err)
			}
			return nil, domain.NewProcessingError("load "+f.name, err)
		}
	}

	bundle, err := NewBundle(vec, clf, labels, version)
	if err != nil {
		return nil, domain.NewModelNotFoundError(dir, "incompatible artifacts", err)
	}
	return bundle, nil
}

// Publish writes a bundle as a new release and switches "current" to it.
// Readers see either the old or the new release, never a partial one.
func (s *Store) Publish(bundle *Bundle, manifest Manifest) (string, error) {
	if err := bundle.CheckCompatible(); err != nil {
		return "", fmt.Errorf("refusing to publish incompatible bundle: %w", err)
	}
	version := manifest.Version
	if version == "" {
		version = time.Now().UTC().Format("20060102T150405.000000000Z")
		manifest.Version = version
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now().UTC()
	}
	manifest.Classes = bundle.Labels.Classes
	manifest.Features = bundle.Vectorizer.Dim()

	releaseDir := filepath.Join(s.dir, releasesDir, version)
	if _, err := os.Stat(releaseDir); err == nil {
		return "", fmt.Errorf("release %s already exists", version)
	}
	stageDir := releaseDir + ".tmp"
	if err := os.RemoveAll(stageDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create release directory: %w", err)
	}

	files := []struct {
		name string
		from interface{}
	}{
		{s.names.Vectorizer, bundle.Vectorizer},
		{s.names.Classifier, bundle.Classifier},
		{s.names.Labels, bundle.Labels},
		{manifestFile, manifest},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(stageDir, f.name), f.from); err != nil {
			_ = os.RemoveAll(stageDir)
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := os.Rename(stageDir, releaseDir); err != nil {
		_ = os.RemoveAll(stageDir)
		return "", fmt.Errorf("failed to finalize release: %w", err)
	}

	link := filepath.Join(s.dir, currentLink)
	tmpLink := link + ".tmp"
	_ = os.Remove(tmpLink)
	if err := os.Symlink(filepath.Join(releasesDir, version), tmpLink); err != nil {
		return "", fmt.Errorf("failed to create release link: %w", err)
	}
	if err := os.Rename(tmpLink, link); err != nil {
		_ = os.Remove(tmpLink)
		return "", fmt.Errorf("failed to switch current release: %w", err)
	}
	return version, nil
}

// Releases lists published versions, oldest first
func (s *Store) Releases() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, releasesDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && filepath.Ext(e.Name()) != ".tmp" {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// Prune removes all but the newest keep releases. The current release is
// never removed.
func (s *Store) Prune(keep int) ([]string, error) {
	versions, err := s.Releases()
	if err != nil || len(versions) <= keep {
		return nil, err
	}
	_, current, _ := s.resolve()

	var removed []string
	for _, v := range versions[:len(versions)-keep] {
		if v == current {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, releasesDir, v)); err != nil {
			return removed, err
		}
		removed = append(removed, v)
	}
	return removed, nil
}

// ReadManifest returns the manifest of the active release
func (s *Store) ReadManifest() (*Manifest, error) {
	dir, _, err := s.resolve()
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := readJSON(filepath.Join(dir, manifestFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

func readJSON(path string, into interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, from interface{}) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
