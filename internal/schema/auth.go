package schema

// UserRecord is the user object embedded in auth responses.
type UserRecord struct {
	ID    FlexString `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

// AuthResponse is the body of POST /auth/login and /auth/register.
type AuthResponse struct {
	Status  any        `json:"status"`
	Message string     `json:"message"`
	User    UserRecord `json:"user"`
	Token   string     `json:"token"`
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UploadResult is the data payload of POST /files/upload.
type UploadResult struct {
	Filename string  `json:"filename"`
	Path     string  `json:"path"`
	URL      string  `json:"url"`
	Type     string  `json:"type"`
	Size     FlexInt `json:"size"`
	MIMEType string  `json:"mime_type"`
}
