package repository

import (
	"context"
	"fmt"

	"goalquest-backend/config"
	"goalquest-backend/logger"
	"goalquest-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalog загружает категории и достижения из каталога. Повторный запуск обновляет
// записи по коду и не создает дублей; достижения, выданные пользователям, не удаляются.
func SeedCatalog(ctx context.Context, db *gorm.DB, catalog *config.Catalog, log *logger.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range catalog.Categories {
			cat := models.Category{Code: c.Code, Name: c.Name, Icon: c.Icon, Color: c.Color}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "icon", "color"}),
			}).Create(&cat).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", c.Code, err)
			}
		}

		for _, seed := range catalog.Achievements {
			a, err := seed.ToModel()
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "description", "icon", "points", "criteria",
					"level", "category_code", "is_active", "is_secret", "updated_at",
				}),
			}).Create(&a).Error; err != nil {
				return fmt.Errorf("seed achievement %q: %w", seed.Code, err)
			}
		}

		log.Info("Каталог достижений загружен",
			"categories", len(catalog.Categories),
			"achievements", len(catalog.Achievements),
		)
		return nil
	})
}
