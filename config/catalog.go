package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"goalquest-backend/models"

	"gopkg.in/yaml.v3"
)

// CategorySeed описание категории в каталоге
type CategorySeed struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
}

// AchievementSeed описание достижения в каталоге
type AchievementSeed struct {
	Code         string                 `yaml:"code"`
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description"`
	Icon         string                 `yaml:"icon"`
	Points       int                    `yaml:"points"`
	Level        string                 `yaml:"level"`
	CategoryCode string                 `yaml:"category_code"`
	Secret       bool                   `yaml:"secret"`
	Inactive     bool                   `yaml:"inactive"`
	Criteria     map[string]interface{} `yaml:"criteria"`
}

// Catalog каталог категорий и достижений, загружаемый из YAML
type Catalog struct {
	Categories   []CategorySeed    `yaml:"categories"`
	Achievements []AchievementSeed `yaml:"achievements"`
}

// LoadCatalog читает каталог достижений из файла
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает каталог и проверяет уникальность кодов
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	categories := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Code) == "" {
			return nil, fmt.Errorf("category without code")
		}
		if categories[cat.Code] {
			return nil, fmt.Errorf("duplicate category code %q", cat.Code)
		}
		categories[cat.Code] = true
	}

	codes := make(map[string]bool, len(c.Achievements))
	for i, a := range c.Achievements {
		if strings.TrimSpace(a.Code) == "" {
			return nil, fmt.Errorf("achievement #%d without code", i)
		}
		if codes[a.Code] {
			return nil, fmt.Errorf("duplicate achievement code %q", a.Code)
		}
		codes[a.Code] = true

		if a.Points < 0 {
			return nil, fmt.Errorf("achievement %q: negative points", a.Code)
		}
		if a.Level == "" {
			c.Achievements[i].Level = string(models.LevelBronze)
		} else if !models.AchievementLevel(a.Level).Valid() {
			return nil, fmt.Errorf("achievement %q: unknown level %q", a.Code, a.Level)
		}
		if a.CategoryCode != "" && !categories[a.CategoryCode] {
			return nil, fmt.Errorf("achievement %q: unknown category %q", a.Code, a.CategoryCode)
		}
		if len(a.Criteria) == 0 {
			return nil, fmt.Errorf("achievement %q: criteria required", a.Code)
		}
		if cat, ok := a.Criteria["category"].(string); ok && !categories[cat] {
			return nil, fmt.Errorf("achievement %q: criteria references unknown category %q", a.Code, cat)
		}
	}
	return &c, nil
}

// Validate проверяет каждый критерий переданным парсером
func (c *Catalog) Validate(parse func([]byte) error) error {
	for _, a := range c.Achievements {
		raw, err := a.CriteriaJSON()
		if err != nil {
			return err
		}
		if err := parse(raw); err != nil {
			return fmt.Errorf("achievement %q: %w", a.Code, err)
		}
	}
	return nil
}

// CriteriaJSON сериализует критерий для хранения
func (a AchievementSeed) CriteriaJSON() ([]byte, error) {
	raw, err := json.Marshal(a.Criteria)
	if err != nil {
		return nil, fmt.Errorf("achievement %q: encode criteria: %w", a.Code, err)
	}
	return raw, nil
}

// ToModel преобразует запись каталога в модель
func (a AchievementSeed) ToModel() (models.Achievement, error) {
	raw, err := a.CriteriaJSON()
	if err != nil {
		return models.Achievement{}, err
	}
	m := models.Achievement{
		Code:        a.Code,
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Points:      a.Points,
		Criteria:    raw,
		Level:       models.AchievementLevel(a.Level),
		IsActive:    !a.Inactive,
		IsSecret:    a.Secret,
	}
	if a.CategoryCode != "" {
		code := a.CategoryCode
		m.CategoryCode = &code
	}
	return m, nil
}
