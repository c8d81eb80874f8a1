package models

// UserProfile is the locally persisted identity shown in the sidebar and settings page.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DefaultUserProfile is what a fresh install starts with.
func DefaultUserProfile() UserProfile {
	return UserProfile{Name: "User", Email: ""}
}

// UserPatch carries a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Apply shallow-merges p into u and returns the result.
func (p UserPatch) Apply(u UserProfile) UserProfile {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	return u
}
