package slots

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"parking-monitor-go/internal/models"
)

var (
	ErrNoSlots   = errors.New("template has no parking slots")
	ErrEmptyName = errors.New("template name is empty")
)

const templateExt = ".xml"

type templateXML struct {
	XMLName     xml.Name  `xml:"ParkingTemplate"`
	Name        string    `xml:"name,attr"`
	Description string    `xml:"description,attr"`
	Created     string    `xml:"created,attr,omitempty"`
	Slots       []slotXML `xml:"Slot"`
}

type slotXML struct {
	ID     int        `xml:"id,attr"`
	Points []pointXML `xml:"Point"`
}

type pointXML struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

// TemplateInfo describes a template file on disk
type TemplateInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	SlotCount   int       `json:"slot_count"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// LoadTemplate replaces the current slots with the ones stored at path
func (m *Manager) LoadTemplate(path string) error {
	tpl, err := readTemplate(path)
	if err != nil {
		return err
	}

	slots := make([]models.ParkingSlot, 0, len(tpl.Slots))
	for _, s := range tpl.Slots {
		poly := make([]image.Point, 0, len(s.Points))
		for _, p := range s.Points {
			poly = append(poly, image.Pt(p.X, p.Y))
		}
		slots = append(slots, models.ParkingSlot{ID: s.ID, Polygon: poly})
	}
	if len(slots) == 0 {
		return fmt.Errorf("%s: %w", path, ErrNoSlots)
	}
	if err := m.SetSlots(slots); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	m.mu.Lock()
	m.name = tpl.Name
	m.description = tpl.Description
	m.mu.Unlock()
	return nil
}

// SaveTemplate writes the current slots to path
func (m *Manager) SaveTemplate(path, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	slots := m.Slots()
	if len(slots) == 0 {
		return ErrNoSlots
	}

	tpl := templateXML{
		Name:        name,
		Description: description,
		Created:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, s := range slots {
		sx := slotXML{ID: s.ID}
		for _, p := range s.Polygon {
			sx.Points = append(sx.Points, pointXML{X: p.X, Y: p.Y})
		}
		tpl.Slots = append(tpl.Slots, sx)
	}

	data, err := xml.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create template dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(xml.Header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write template: %w", err)
	}

	m.mu.Lock()
	m.name = name
	m.description = description
	m.mu.Unlock()
	return nil
}

// TemplatePath returns the file path for a template name inside dir
func TemplatePath(dir, name string) (string, error) {
	name = strings.TrimSpace(strings.TrimSuffix(name, templateExt))
	if name == "" {
		return "", ErrEmptyName
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		default:
			return -1
		}
	}, name)
	if clean == "" {
		return "", ErrEmptyName
	}
	return filepath.Join(dir, clean+templateExt), nil
}

// ListTemplates returns every readable template in dir, sorted by name
func ListTemplates(dir string) ([]TemplateInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []TemplateInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != templateExt {
			continue
		}
		path := filepath.Join(dir, e.Name())
		tpl, err := readTemplate(path)
		if err != nil {
			continue
		}
		info := TemplateInfo{
			Name:        strings.TrimSuffix(e.Name(), templateExt),
			Path:        path,
			Description: tpl.Description,
			SlotCount:   len(tpl.Slots),
		}
		if fi, err := e.Info(); err == nil {
			info.ModifiedAt = fi.ModTime()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func readTemplate(path string) (*templateXML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	var tpl templateXML
	if err := xml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return &tpl, nil
}
