package entity

import "time"

// User represents an account row in the `users` table.
// Email is stored normalized (trimmed, lower-cased) and is unique.
type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicUser is the projection returned to clients; it never carries the hash.
type PublicUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Registered is the view returned by register: id, name, email, createdAt.
func (u *User) Registered() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: &u.CreatedAt}
}

// LoggedIn is the view returned by login: id, email, name.
func (u *User) LoggedIn() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Profile is the full public view including both timestamps.
func (u *User) Profile() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: &u.CreatedAt, UpdatedAt: &u.UpdatedAt}
}
