package auth

// Role is the single role an admin operator acts under.
type Role struct {
	Name string `json:"name"`
}

// AuthenticationSource records how the operator proved who they are.
// Provider is always "bearer" today; Issuer is the token's iss claim.
type AuthenticationSource struct {
	Provider string `json:"provider"`
	Issuer   string `json:"issuer,omitempty"`
}

// User is the operator attached to an admin request after the bearer token
// has been verified.
type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

// Anonymous reports whether no verified operator is attached.
func (u User) Anonymous() bool { return u.Username == "" }
