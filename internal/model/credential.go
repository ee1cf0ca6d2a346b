package model

// Credential is the remote login used against an instance. KeyPath and User
// come from process configuration; Password comes from the triggering event
// and is only used when the key file is absent.
type Credential struct {
	KeyPath  string `json:"key_path,omitempty"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
}

// WithPassword returns a copy of c carrying the event password.
func (c Credential) WithPassword(password string) Credential {
	c.Password = password
	return c
}
