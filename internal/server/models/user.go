package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies where an account's identity comes from. An account is
// unique per (email, provider) pair.
type Provider string

const (
	ProviderLocal  Provider = "Local"
	ProviderNaver  Provider = "Naver"
	ProviderKakao  Provider = "Kakao"
	ProviderGoogle Provider = "Google"
	ProviderApple  Provider = "Apple"
)

var providers = []Provider{ProviderLocal, ProviderNaver, ProviderKakao, ProviderGoogle, ProviderApple}

func (p Provider) Valid() bool {
	for _, v := range providers {
		if p == v {
			return true
		}
	}
	return false
}

// IsSocial reports whether p is an external identity provider.
func (p Provider) IsSocial() bool {
	return p.Valid() && p != ProviderLocal
}

// ParseProvider accepts provider names case-insensitively.
func ParseProvider(s string) (Provider, error) {
	for _, v := range providers {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

type UserStatus string

const (
	UserStatusActive      UserStatus = "Active"
	UserStatusRestriction UserStatus = "Restriction"
	UserStatusWithdrawal  UserStatus = "Withdrawal"
	UserStatusSuspended   UserStatus = "Suspended"
)

// Agreements are the consent flags captured at sign-up.
type Agreements struct {
	Essential         bool `json:"essentialAgree"`
	CustomizedService bool `json:"customizedServiceAgree"`
	Marketing         bool `json:"marketingAgree"`
}

type Profile struct {
	Nickname string `json:"nickname"`
	Career   string `json:"career"`
}

// User is the stored account record. PasswordHash is set only for local
// accounts; RefreshTokenHash and RefreshTokenExpiresAt describe the single
// refresh token currently valid for the user, if any.
type User struct {
	ID                    string
	Email                 string
	Provider              Provider
	PasswordHash          string
	UserCode              string
	RefreshTokenHash      string
	RefreshTokenExpiresAt *time.Time
	Agreements            Agreements
	Name                  string
	Phone                 string
	Birth                 string
	ReportCount           int
	SanctionCount         int
	SanctionDate          *time.Time
	Status                UserStatus
	Paid                  bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Profile               *Profile
}

// UserInfo is the projection of User that may leave the service.
type UserInfo struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Provider      Provider   `json:"provider"`
	UserCode      string     `json:"userCode"`
	Agreements    Agreements `json:"agreements"`
	Name          string     `json:"name,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Birth         string     `json:"birth,omitempty"`
	ReportCount   int        `json:"reportCount"`
	SanctionCount int        `json:"sanctionCount"`
	SanctionDate  *time.Time `json:"sanctionDate,omitempty"`
	Status        UserStatus `json:"userStatus"`
	Paid          bool       `json:"paid"`
	CreatedAt     time.Time  `json:"createdAt"`
	Profile       *Profile   `json:"profile,omitempty"`
}

// Info strips credentials and token state.
func (u *User) Info() UserInfo {
	info := UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Provider:      u.Provider,
		UserCode:      u.UserCode,
		Agreements:    u.Agreements,
		Name:          u.Name,
		Phone:         u.Phone,
		Birth:         u.Birth,
		ReportCount:   u.ReportCount,
		SanctionCount: u.SanctionCount,
		SanctionDate:  u.SanctionDate,
		Status:        u.Status,
		Paid:          u.Paid,
		CreatedAt:     u.CreatedAt,
	}
	if u.Profile != nil {
		p := *u.Profile
		info.Profile = &p
	}
	return info
}

// AttributePatch carries re-certified personal attributes. Nil fields are
// left unchanged.
type AttributePatch struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Birth *string `json:"birth,omitempty"`
}

func (p AttributePatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Birth == nil
}

// Apply copies the set fields of p onto u.
func (p AttributePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Birth != nil {
		u.Birth = *p.Birth
	}
}
