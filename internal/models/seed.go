package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRoles are the roles every installation starts with.
func DefaultRoles() []Role {
	return []Role{
		{Code: "USER", Name: "User", Description: "Standard user role"},
		{Code: "ADMIN", Name: "Administrator", Description: "Administrator role"},
		{Code: "ANALYZER", Name: "Analyzer", Description: "Data analyzer role"},
		{Code: "MONITOR", Name: "Monitor", Description: "System monitor role"},
		{Code: "TEAM_LEADER", Name: "Team Leader", Description: "Team leader role"},
	}
}

// SeedDefaultRoles inserts the default roles, leaving existing rows alone.
func SeedDefaultRoles(ctx context.Context, db *gorm.DB, createdBy string) (int64, error) {
	var inserted int64
	for _, r := range DefaultRoles() {
		role := r
		role.CreatedBy = createdBy
		role.UpdatedBy = createdBy
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).
			Create(&role)
		if res.Error != nil {
			return inserted, fmt.Errorf("seed role %s: %w", role.Code, res.Error)
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}
