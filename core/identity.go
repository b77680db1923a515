package core

// Identity is the author recorded on every commit.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
