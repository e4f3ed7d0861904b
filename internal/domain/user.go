package domain

import "time"

type Role string

const (
	RoleTourist    Role = "tourist"
	RoleCaptain    Role = "captain"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

type SubscriptionPlan string

const (
	PlanFree     SubscriptionPlan = "free"
	PlanStandard SubscriptionPlan = "standard"
	PlanAdvanced SubscriptionPlan = "advanced"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Plan         SubscriptionPlan
	Phone        string
	CreatedAt    time.Time
}

// CanCreateCaptainOffers gates the detailed offer variant.
func (u *User) CanCreateCaptainOffers() bool {
	switch u.Role {
	case RoleCaptain, RoleManager, RoleSuperadmin:
		return true
	}
	return false
}

// CanCreateTouristOffers gates the simplified, client-facing variant.
func (u *User) CanCreateTouristOffers() bool {
	return u.Role == RoleManager || u.Role == RoleSuperadmin
}

func (u *User) CanCreateOffers() bool {
	return u.CanCreateCaptainOffers() || u.CanCreateTouristOffers()
}

// CanUseNoBranding requires the advanced plan or admin rights. Managers
// and the standard plan do not qualify.
func (u *User) CanUseNoBranding() bool {
	return u.Plan == PlanAdvanced || u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

func (u *User) CanUseCustomBranding() bool {
	return u.Plan == PlanAdvanced || u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin || u.Role == RoleSuperadmin }

// EffectiveRole keeps role and subscription consistent: free accounts are
// tourists, paid ones captains. Elevated roles are assigned manually and
// never downgraded here.
func EffectiveRole(role Role, plan SubscriptionPlan) Role {
	if role != RoleTourist && role != RoleCaptain {
		return role
	}
	if plan == PlanStandard || plan == PlanAdvanced {
		return RoleCaptain
	}
	return RoleTourist
}
