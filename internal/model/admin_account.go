package model

// AdminAccount is one administrative login, optionally linked 1:1 to a
// member. PasswordHash is a bcrypt hash; the plain-text storage of the
// legacy system is deliberately not reproduced.
type AdminAccount struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	PasswordHash     string `json:"password"`
	DisplayName      string `json:"displayName"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	LinkedMemberID   string `json:"linkedMemberId,omitempty"`
	LinkedMemberName string `json:"linkedMemberName,omitempty"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}
