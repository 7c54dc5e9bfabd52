package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

type mailboxResponse struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Folder      string `json:"folder"`
	HasPassword bool   `json:"has_password"`
}

type Response struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      user.Role       `json:"role"`
	IsActive  bool            `json:"is_active"`
	TaxID     *string         `json:"tax_id,omitempty"`
	Mailbox   mailboxResponse `json:"mailbox"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// ToResponse never includes the password hash or the mailbox password.
func ToResponse(u *user.User) Response {
	return Response{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		IsActive: u.IsActive,
		TaxID:    u.TaxID,
		Mailbox: mailboxResponse{
			Enabled:     u.Mailbox.Enabled,
			Host:        u.Mailbox.Host,
			Port:        u.Mailbox.Port,
			Username:    u.Mailbox.Username,
			Folder:      u.Mailbox.Folder,
			HasPassword: u.Mailbox.Password != "",
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toResponseList(users []*user.User) []Response {
	resp := make([]Response, len(users))
	for i, u := range users {
		resp[i] = ToResponse(u)
	}

	return resp
}
