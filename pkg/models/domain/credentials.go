package domain

// Credentials are the portal login details handed out by a vault
type Credentials struct {
	Username string
	Secret   string
}

func (c Credentials) Empty() bool {
	return c.Username == "" || c.Secret == ""
}
