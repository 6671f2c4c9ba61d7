package tokens

// Pair is the access/refresh token pair. The zero value is the empty pair
// that stands for "no session".
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// IsZero reports whether both tokens are empty.
func (p Pair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
