// Package dataset loads the pipeline's inputs described by a manifest and
// writes its outputs: tables, shapefiles and PostGIS-ready geometry.
package dataset

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geoenrich/internal/tiger"
)

// Manifest lists the datasets of one enrichment run. Every layer carries an
// explicit EPSG code; nothing is inferred from the files.
type Manifest struct {
	Sales           SalesSource  `yaml:"sales"`
	Joins           []JoinSource `yaml:"joins"`
	Markets         PointSource  `yaml:"markets"`
	TreatmentPlants PointSource  `yaml:"treatment_plants"`

	dir string
}

// SalesSource is the tabular sales file.
type SalesSource struct {
	Path  string `yaml:"path"`
	EPSG  int    `yaml:"epsg"`
	Sheet string `yaml:"sheet"` // xlsx only

	// Columns maps canonical names (id, price, year_built, latitude,
	// longitude, address) to the file's header names.
	Columns map[string]string `yaml:"columns"`
}

// JoinSource is one administrative polygon layer.
type JoinSource struct {
	Name      string      `yaml:"name"`
	Path      string      `yaml:"path"`
	EPSG      int         `yaml:"epsg"`
	TitleCase bool        `yaml:"title_case"`
	Fields    []FieldSpec `yaml:"fields"`
}

// FieldSpec copies DBF field Source into output column Name.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// PointSource is a point layer with the attribute naming each feature.
type PointSource struct {
	Path      string `yaml:"path"`
	EPSG      int    `yaml:"epsg"`
	NameField string `yaml:"name_field"`
}

// LoadManifest reads a manifest from a YAML file. Relative local paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read manifest %s", path)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: manifest %s", path)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "dataset: parse manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every dataset has a path and an EPSG code.
func (m *Manifest) Validate() error {
	if m.Sales.Path == "" {
		return eris.New("dataset: manifest: sales.path is required")
	}
	if m.Sales.EPSG <= 0 {
		return eris.New("dataset: manifest: sales.epsg is required")
	}
	for key, src := range map[string]PointSource{"markets": m.Markets, "treatment_plants": m.TreatmentPlants} {
		if src.Path == "" || src.EPSG <= 0 {
			return eris.Errorf("dataset: manifest: %s needs path and epsg", key)
		}
	}
	if m.Markets.NameField == "" {
		m.Markets.NameField = "NAME"
	}
	if m.TreatmentPlants.NameField == "" {
		m.TreatmentPlants.NameField = "NAME"
	}

	seen := make(map[string]bool, len(m.Joins))
	for i, j := range m.Joins {
		if j.EPSG <= 0 && tiger.IsLocation(j.Path) {
			j.EPSG = tiger.EPSG
			m.Joins[i].EPSG = tiger.EPSG
		}
		if j.Name == "" || j.Path == "" || j.EPSG <= 0 {
			return eris.Errorf("dataset: manifest: joins[%d] needs name, path and epsg", i)
		}
		if seen[j.Name] {
			return eris.Errorf("dataset: manifest: duplicate join %q", j.Name)
		}
		seen[j.Name] = true
		if len(j.Fields) == 0 {
			return eris.Errorf("dataset: manifest: join %q has no fields", j.Name)
		}
		for _, f := range j.Fields {
			if f.Name == "" || f.Source == "" {
				return eris.Errorf("dataset: manifest: join %q has a field without name or source", j.Name)
			}
		}
	}
	return nil
}

// Locate returns a location relative to the manifest's directory. URLs and
// absolute paths are returned unchanged.
func (m *Manifest) Locate(location string) string {
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		return location
	}
	if filepath.IsAbs(location) || m.dir == "" {
		return location
	}
	return filepath.Join(m.dir, location)
}
