package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySubjectID struct {
	SubjectID uuid.UUID
}

func (s BySubjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject_id = ?", s.SubjectID)
}

type ByUnitID struct {
	UnitID uuid.UUID
}

func (s ByUnitID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("unit_id = ?", s.UnitID)
}

type ByTopicID struct {
	TopicID uuid.UUID
}

func (s ByTopicID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("topic_id = ?", s.TopicID)
}

type ByMaterialID struct {
	MaterialID uuid.UUID
}

func (s ByMaterialID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("material_id = ?", s.MaterialID)
}
