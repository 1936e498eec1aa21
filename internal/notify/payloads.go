package notify

// AccountMail addresses a lifecycle mail to one user.
type AccountMail struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// PasswordResetMail carries the one-time reset token.
type PasswordResetMail struct {
	AccountMail
	Token string `json:"token"`
}
