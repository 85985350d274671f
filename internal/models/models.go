// Package models holds the application tables whose writes are audited.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All returns the audited models. Tables that others reference come first so
// AutoMigrate can create the foreign keys.
func All() []any {
	return []any{&Role{}, &User{}, &RefreshToken{}, &SQLLog{}}
}

// Role is keyed by its code; users point at it through users.role.
type Role struct {
	Code        string    `gorm:"column:code;type:varchar(64);primaryKey"`
	Name        string    `gorm:"column:name;type:varchar(128);not null"`
	Description string    `gorm:"column:description;type:text"`
	CreatedBy   string    `gorm:"column:created_by;type:varchar(64)"`
	UpdatedBy   string    `gorm:"column:updated_by;type:varchar(64)"`
	CreatedTime time.Time `gorm:"column:created_time;autoCreateTime"`
	UpdatedTime time.Time `gorm:"column:updated_time;autoUpdateTime"`
}

func (Role) TableName() string { return "roles" }

type User struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Username     string    `gorm:"column:username;type:varchar(64);uniqueIndex;not null"`
	Email        string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password;type:varchar(255);not null"`
	CreatedBy    string    `gorm:"column:created_by;type:varchar(64)"`
	UpdatedBy    string    `gorm:"column:updated_by;type:varchar(64)"`
	Role         string    `gorm:"column:role;type:varchar(64);index"`
	CreatedTime  time.Time `gorm:"column:created_time;autoCreateTime"`
	UpdatedTime  time.Time `gorm:"column:updated_time;autoUpdateTime"`

	// No column of its own; only declares users.role -> roles.code.
	RoleRecord Role `gorm:"foreignKey:Role;references:Code;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// RefreshToken stores only the hex sha256 of the token.
type RefreshToken struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID      string    `gorm:"column:user_id;type:varchar(36);index;not null"`
	TokenHash   string    `gorm:"column:token_hash;type:char(64);uniqueIndex;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
	CreatedTime time.Time `gorm:"column:created_time;autoCreateTime"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	assignID(&rt.ID)
	return nil
}

// SQLLog is one slow-query record.
type SQLLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement;column:id"`
	DBName     string    `gorm:"column:db_name;type:varchar(128);not null"`
	SQLQuery   string    `gorm:"column:sql_query;type:text;not null"`
	ExecTimeMs int64     `gorm:"column:exec_time_ms;not null"`
	ExecCount  int64     `gorm:"column:exec_count;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SQLLog) TableName() string { return "sql_logs" }

// assignID gives a new row a random uuid unless the caller chose one.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
