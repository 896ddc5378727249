package rotauth

// TokenPair is what collaborators hand back to clients after a successful
// login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}
