package model

// User 用户表 — 对应 users（公司员工目录）
type User struct {
	UserID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role      string `gorm:"type:varchar(20);not null;default:'crew'"       json:"role"` // admin | supervisor | crew
	AvatarURL string `gorm:"type:varchar(500);not null;default:''"          json:"avatar_url"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
