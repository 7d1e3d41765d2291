package models

import "time"

type AuthorityName string

const (
	AuthorityUser  AuthorityName = "USER"
	AuthorityAdmin AuthorityName = "ADMIN"
)

type User struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Username     string          `gorm:"uniqueIndex;not null"        json:"username"`
	PasswordHash string          `gorm:"not null"                    json:"-"`
	Nickname     string          `gorm:"not null"                    json:"nickname"`
	Authorities  []UserAuthority `gorm:"constraint:OnDelete:CASCADE" json:"authorities"`
	RefreshToken *string         `json:"-"`
	LastLogin    *time.Time      `json:"-"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

type UserAuthority struct {
	ID            uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID        uint          `gorm:"index;not null"           json:"-"`
	AuthorityName AuthorityName `gorm:"not null"                 json:"authorityName"`
}

func (u *User) HasAuthority(names ...AuthorityName) bool {
	for _, a := range u.Authorities {
		for _, n := range names {
			if a.AuthorityName == n {
				return true
			}
		}
	}
	return false
}

func (u *User) AuthorityNames() []string {
	out := make([]string, 0, len(u.Authorities))
	for _, a := range u.Authorities {
		out = append(out, string(a.AuthorityName))
	}
	return out
}

type RevokeReason string

const (
	ReasonLogout   RevokeReason = "LOGOUT"
	ReasonRotation RevokeReason = "ROTATION"
	ReasonRefresh  RevokeReason = "REFRESH"
	ReasonExpired  RevokeReason = "EXPIRED"
)

// TokenBlacklist rows are pruned by repo.Pruner once older than the
// configured retention window.
type TokenBlacklist struct {
	ID        uint         `gorm:"primaryKey"           json:"id"`
	Token     string       `gorm:"uniqueIndex;not null" json:"token"`
	Reason    RevokeReason `gorm:"not null"             json:"reason"`
	CreatedAt time.Time    `gorm:"index;not null"       json:"created_at"`
}
