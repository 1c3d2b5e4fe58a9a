package auth

import (
	"context"
	"fmt"

	"biblomnemon/internal/settings"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates ID tokens issued to the web client id.
type GoogleVerifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{audience: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (settings.CloudUser, error) {
	p, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return settings.CloudUser{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claim := func(name string) string {
		s, _ := p.Claims[name].(string)
		return s
	}
	return settings.NewCloudUser(p.Subject, claim("name"), claim("email"), claim("picture")), nil
}
