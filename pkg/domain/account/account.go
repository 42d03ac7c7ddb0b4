package account

import "errors"

var ErrAccountNotFound = errors.New("account not found")

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// Account is the slice of the platform's users table this engine reads and mutates.
type Account struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (Account) TableName() string {
	return "public.users"
}

// IsPrivileged reports whether the account is exempt from automatic escalation.
func (a *Account) IsPrivileged() bool {
	return a.Role == RoleAdmin
}

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// SecurityState is derived from signal history and ban state. It is never stored.
type SecurityState struct {
	SubjectID             int64  `json:"subject_id"`
	CumulativeAttackCount int64  `json:"cumulative_attack_count"`
	IsPrivileged          bool   `json:"is_privileged"`
	CurrentStatus         Status `json:"current_status"`
}

// OriginState is derived for unauthenticated network origins.
type OriginState struct {
	OriginAddress       string `json:"origin_address"`
	WindowedAttackCount int64  `json:"windowed_attack_count"`
	CurrentStatus       Status `json:"current_status"`
}
