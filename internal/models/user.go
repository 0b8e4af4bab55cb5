package models

import "time"

// Role values accepted for a platform user.
const (
	RoleAdmin      = "admin"
	RoleChiefJudge = "chief_judge"
	RoleJudge      = "judge"
	RoleContestant = "contestant"
)

// ValidRole reports whether the supplied role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleChiefJudge, RoleJudge, RoleContestant:
		return true
	default:
		return false
	}
}

// User represents a platform account: administrator, chief judge, judge or contestant.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Role      string    `gorm:"size:50;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
