// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

// ProfileResponse is the account view returned to its owner. The password
// hash never leaves the package.
type ProfileResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func ToProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:           u.ID,
		Email:        u.Email,
		RegisteredAt: u.CreatedAt,
	}
}
