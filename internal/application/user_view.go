package application

import (
	"time"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
)

// UserView is the public projection of a user. Password and OTP state never leave the service.
type UserView struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	Username         string                     `json:"username"`
	Email            string                     `json:"email"`
	Role             entity.Role                `json:"role"`
	Avatar           string                     `json:"avatar,omitempty"`
	TwoFactorEnabled bool                       `json:"twoFactorEnabled"`
	SocialIDs        map[entity.Provider]string `json:"socialIds,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

func NewUserView(u *entity.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:               u.ID,
		Name:             u.Name,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		Avatar:           u.Avatar,
		TwoFactorEnabled: u.TwoFactorEnabled,
		SocialIDs:        u.SocialIDs,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func NewUserViews(us []*entity.User) []*UserView {
	out := make([]*UserView, 0, len(us))
	for _, u := range us {
		out = append(out, NewUserView(u))
	}
	return out
}
