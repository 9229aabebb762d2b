package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/tableadmin/internal/config"
)

const defaultDir = "configs"

var (
	ErrProfileNotFound = errors.New("profile not found")

	fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
)

// Profile is a saved connection configuration.
type Profile struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Target   string    `json:"target"`
	Schema   string    `json:"schema"`
	Modified time.Time `json:"modified"`
}

// Manager keeps profiles as YAML config files inside one directory.
type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	return &Manager{dir: dir}
}

func (m *Manager) Directory() string {
	return m.dir
}

// List returns every readable profile ordered by name. Files that do not
// parse as a config are skipped.
func (m *Manager) List() ([]Profile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Profile{}, nil
		}
		return nil, err
	}

	profiles := []Profile{}
	for _, entry := range entries {
		if entry.IsDir() || !hasYAMLExt(entry.Name()) {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		cfg, err := config.LoadConfig(path)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		profiles = append(profiles, describe(path, cfg, modifiedTime(info, err)))
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Save writes cfg under alias, or under a name derived from the database
// when alias is blank.
func (m *Manager) Save(alias string, cfg *config.Config) (Profile, error) {
	if cfg == nil {
		return Profile{}, fmt.Errorf("config cannot be nil")
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Profile{}, err
	}

	base := strings.TrimSpace(alias)
	if base == "" {
		base = fmt.Sprintf("%s-%s", cfg.Database.Database, cfg.Admin.Schema)
	}
	path := filepath.Join(m.dir, ensureYAMLExt(sanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))))

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Profile{}, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Profile{}, err
	}

	return describe(path, cfg, time.Now()), nil
}

// Load reads a profile by alias or by file path.
func (m *Manager) Load(alias string) (*config.Config, error) {
	path, err := m.resolve(alias)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

func (m *Manager) Delete(alias string) error {
	path, err := m.resolve(alias)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (m *Manager) resolve(alias string) (string, error) {
	if strings.TrimSpace(alias) == "" {
		return "", fmt.Errorf("profile alias cannot be empty")
	}

	path := alias
	if !strings.ContainsRune(alias, os.PathSeparator) {
		path = filepath.Join(m.dir, ensureYAMLExt(alias))
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrProfileNotFound, alias)
	}
	return path, nil
}

func describe(path string, cfg *config.Config, modified time.Time) Profile {
	return Profile{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:     path,
		Target:   fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database),
		Schema:   cfg.Admin.Schema,
		Modified: modified,
	}
}

func modifiedTime(info os.FileInfo, err error) time.Time {
	if err != nil || info == nil {
		return time.Time{}
	}
	return info.ModTime()
}

func hasYAMLExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func ensureYAMLExt(name string) string {
	if hasYAMLExt(name) {
		return name
	}
	return name + ".yaml"
}

func sanitizeName(input string) string {
	cleaned := fileNameSanitizer.ReplaceAllString(input, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "profile"
	}
	return cleaned
}
