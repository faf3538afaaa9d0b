package domain

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleSupplier UserRole = "supplier"
	UserRoleRenter   UserRole = "renter"
)

type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Role        UserRole `json:"role"`
}

// Party is the slice of a user that goes into notification payloads.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (u *User) Party() Party {
	return Party{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.PhoneNumber}
}

// Actor is the authenticated caller of a manual operation.
type Actor struct {
	UserID string
	Role   UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}
