package models

// Option is a generic key-value store for user preferences.
type Option struct {
	ID    uint   `json:"-"     gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name"  gorm:"uniqueIndex;not null;size:191"`
	Value string `json:"value" gorm:"type:text"`
}

func (Option) TableName() string { return "options" }
