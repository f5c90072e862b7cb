package specification

import "gorm.io/gorm"

type ActiveDocuments struct{}

func (s ActiveDocuments) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}
