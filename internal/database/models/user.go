package models

// User is the stored account record. Password holds a bcrypt hash for accounts
// created by this service; records written by older clients may still carry the
// raw string until the next successful login upgrades them.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
	PhotoB64 string `json:"photoB64,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// PublicUser is the projection handed to callers and kept in the session slot.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Company  string `json:"company,omitempty"`
	PhotoB64 string `json:"photoB64,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Company:  u.Company,
		PhotoB64: u.PhotoB64,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}

// Merge copies the editable profile fields of p onto u. ID and password are untouched.
func (u *User) Merge(p PublicUser) {
	u.Username = p.Username
	u.Company = p.Company
	u.PhotoB64 = p.PhotoB64
	u.Email = p.Email
	u.Phone = p.Phone
}
