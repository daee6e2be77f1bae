package models

// User is the identity row backing the session store. Everything downstream
// of authentication consumes only the ID.
type User struct {
	ID       int64
	Email    string
	PassHash []byte
}
