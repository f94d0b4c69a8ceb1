package handler

type signupRequest struct {
	Email       string      `json:"email"        validate:"required,email,max=254"`
	Handle      string      `json:"handle"       validate:"required,handle"`
	Password    string      `json:"password"     validate:"required,min=6,max=72"`
	DisplayName string      `json:"display_name" validate:"max=100"`
	StatusText  string      `json:"status_text"  validate:"max=280"`
	BioText     string      `json:"bio_text"     validate:"max=2000"`
	Location    string      `json:"location"     validate:"max=100"`
	FaceVectors [][]float32 `json:"face_vectors" validate:"required,len=3,dive,len=128"`
}

type externalSignupRequest struct {
	Assertion   string      `json:"assertion"    validate:"required"`
	Handle      string      `json:"handle"       validate:"required,handle"`
	StatusText  string      `json:"status_text"  validate:"max=280"`
	BioText     string      `json:"bio_text"     validate:"max=2000"`
	Location    string      `json:"location"     validate:"max=100"`
	FaceVectors [][]float32 `json:"face_vectors" validate:"required,len=3,dive,len=128"`
}

// loginRequest accepts JSON or an OAuth2 password form (username, password).
type loginRequest struct {
	Email    string `json:"email"    form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type externalLoginRequest struct {
	Assertion string `json:"assertion" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	StatusText  *string `json:"status_text"  validate:"omitempty,max=280"`
	BioText     *string `json:"bio_text"     validate:"omitempty,max=2000"`
	Location    *string `json:"location"     validate:"omitempty,max=100"`
}

type faceVectorsRequest struct {
	FaceVectors [][]float32 `json:"face_vectors" validate:"required,len=3,dive,len=128"`
}

// vectorQueryRequest carries one embedding. Dimensions are checked by the
// service so a wrong length is reported the same way on every path.
type vectorQueryRequest struct {
	Vector []float32 `json:"vector" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	StatusText  string `json:"status_text,omitempty"`
	BioText     string `json:"bio_text,omitempty"`
	Location    string `json:"location,omitempty"`
	Link        string `json:"link"`
}

type vectorMatchResponse struct {
	profileResponse
	Score float64 `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}
