// Package catalog loads the occupation catalog and builds enrollment options from it.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Source provides occupations. Implementations return nil, nil for an
// unknown id.
type Source interface {
	GetOccupation(ctx context.Context, id string) (*models.Occupation, error)
	ListOccupations(ctx context.Context) ([]*models.Occupation, error)
}

// Loader reads a catalog directory laid out as
//
//	<dir>/<occupation>/occupation.yaml
//	<dir>/<occupation>/levels/*.yaml
//
// and keeps the parsed occupations in memory.
type Loader struct {
	mu          sync.RWMutex
	dir         string
	occupations map[string]*models.Occupation
	loadedAt    time.Time
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		occupations: make(map[string]*models.Occupation),
	}
}

// LoadFromDir loads every occupation directory under dir. Occupations that
// fail to parse or validate are skipped with a warning; the rest replace the
// loaded catalog at once.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	occupations, err := ReadDir(dir)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.dir = dir
	l.occupations = occupations
	l.loadedAt = time.Now()
	l.mu.Unlock()

	slog.Info("catalog loaded", "dir", dir, "occupations", len(occupations))
	return nil
}

// Reload re-reads the directory last loaded and returns the ids of
// occupations whose version changed, appeared or disappeared
func (l *Loader) Reload() ([]string, error) {
	l.mu.RLock()
	dir := l.dir
	l.mu.RUnlock()

	if dir == "" {
		return nil, fmt.Errorf("catalog directory not loaded")
	}

	occupations, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var changed []string
	for id, occ := range occupations {
		if prev, ok := l.occupations[id]; !ok || prev.Version != occ.Version {
			changed = append(changed, id)
		}
	}
	for id := range l.occupations {
		if _, ok := occupations[id]; !ok {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)

	l.occupations = occupations
	l.loadedAt = time.Now()
	return changed, nil
}

// GetOccupation returns an occupation by id
func (l *Loader) GetOccupation(_ context.Context, id string) (*models.Occupation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.occupations[id], nil
}

// ListOccupations returns all loaded occupations ordered by code
func (l *Loader) ListOccupations(_ context.Context) ([]*models.Occupation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Occupation, 0, len(l.occupations))
	for _, occ := range l.occupations {
		result = append(result, occ)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// Add programmatically adds an occupation, computing its version
func (l *Loader) Add(occ *models.Occupation) error {
	if err := Prepare(occ); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.occupations[occ.ID] = occ
	return nil
}

// LoadedAt returns when the catalog was last read
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// ReadDir parses a catalog directory without installing it anywhere
func ReadDir(dir string) (map[string]*models.Occupation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	occupations := make(map[string]*models.Occupation)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		occDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(occDir, "occupation.yaml")); os.IsNotExist(err) {
			continue // not an occupation directory
		}

		occ, err := LoadOccupation(occDir)
		if err != nil {
			slog.Warn("failed to load occupation", "dir", entry.Name(), "error", err)
			continue
		}
		if _, dup := occupations[occ.ID]; dup {
			slog.Warn("duplicate occupation id, skipping", "dir", entry.Name(), "id", occ.ID)
			continue
		}
		occupations[occ.ID] = occ
	}

	return occupations, nil
}

// LoadOccupation reads one occupation directory
func LoadOccupation(dir string) (*models.Occupation, error) {
	data, err := os.ReadFile(filepath.Join(dir, "occupation.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read occupation.yaml: %w", err)
	}

	var of occupationFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("failed to parse occupation.yaml: %w", err)
	}

	id := of.ID
	if id == "" {
		id = filepath.Base(dir)
	}

	occ := &models.Occupation{
		ID:              id,
		Code:            of.Code,
		Name:            of.Name,
		Category:        models.OccupationCategory(of.Category),
		SupportsModular: of.SupportsModular,
	}
	for _, mf := range of.Modules {
		occ.Modules = append(occ.Modules, mf.toModel())
	}

	levelsDir := filepath.Join(dir, "levels")
	if _, err := os.Stat(levelsDir); err == nil {
		levels, err := loadLevels(levelsDir)
		if err != nil {
			return nil, err
		}
		occ.Levels = levels
	}

	if err := Prepare(occ); err != nil {
		return nil, err
	}
	return occ, nil
}

// loadLevels reads levels/*.yaml in file name order, which is catalog order
func loadLevels(dir string) ([]*models.OccupationLevel, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels dir: %w", err)
	}

	var levels []*models.OccupationLevel
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read level file: %w", err)
		}

		var lf levelFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if lf.ID == "" {
			lf.ID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}

		level, err := lf.toModel()
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", lf.ID, err)
		}
		levels = append(levels, level)
	}

	return levels, nil
}

// --- YAML file structs ---

// occupationFile represents occupation.yaml
type occupationFile struct {
	ID              string       `yaml:"id"`
	Code            string       `yaml:"code"`
	Name            string       `yaml:"name"`
	Category        string       `yaml:"category"`
	SupportsModular bool         `yaml:"supports_modular"`
	Modules         []moduleFile `yaml:"modules"`
}

// levelFile represents a levels/*.yaml file
type levelFile struct {
	ID            string       `yaml:"id"`
	Name          string       `yaml:"name"`
	StructureType string       `yaml:"structure_type"`
	Modular       bool         `yaml:"modular"`
	Fees          feesFile     `yaml:"fees"`
	Modules       []moduleFile `yaml:"modules"`
}

// feesFile holds fees as strings so amounts keep their exact decimal value
type feesFile struct {
	Formal              string `yaml:"formal"`
	ModularSingleModule string `yaml:"modular_single_module"`
	ModularDoubleModule string `yaml:"modular_double_module"`
	WorkersPASPerPaper  string `yaml:"workers_pas_per_paper"`
}

type moduleFile struct {
	ID     string      `yaml:"id"`
	Code   string      `yaml:"code"`
	Name   string      `yaml:"name"`
	Papers []paperFile `yaml:"papers"`
}

type paperFile struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

func (lf levelFile) toModel() (*models.OccupationLevel, error) {
	level := &models.OccupationLevel{
		ID:            lf.ID,
		Name:          lf.Name,
		StructureType: models.StructureType(lf.StructureType),
		Modular:       lf.Modular,
	}

	var err error
	if level.FormalFee, err = parseFee("formal", lf.Fees.Formal); err != nil {
		return nil, err
	}
	if level.ModularFeeSingleModule, err = parseFee("modular_single_module", lf.Fees.ModularSingleModule); err != nil {
		return nil, err
	}
	if level.ModularFeeDoubleModule, err = parseFee("modular_double_module", lf.Fees.ModularDoubleModule); err != nil {
		return nil, err
	}
	if level.WorkersPASPerPaperFee, err = parseFee("workers_pas_per_paper", lf.Fees.WorkersPASPerPaper); err != nil {
		return nil, err
	}

	for _, mf := range lf.Modules {
		level.Modules = append(level.Modules, mf.toModel())
	}
	return level, nil
}

func (mf moduleFile) toModel() *models.Module {
	m := &models.Module{ID: mf.ID, Code: mf.Code, Name: mf.Name}
	for _, pf := range mf.Papers {
		m.Papers = append(m.Papers, &models.Paper{
			ID:   pf.ID,
			Code: pf.Code,
			Name: pf.Name,
			Type: models.AssessmentType(pf.Type),
		})
	}
	return m
}

// parseFee returns nil for an empty value; the fee is then undefined
func parseFee(field, raw string) (*apd.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, _, err := apd.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s fee %q: %w", field, raw, err)
	}
	return d, nil
}
