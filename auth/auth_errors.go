package auth

import "github.com/jrsteele09/go-notes-mcp/oauthmodel"

func invalidRequest(description string) *oauthmodel.Error {
	return oauthmodel.NewError(oauthmodel.ErrCodeInvalidRequest, description)
}

func invalidClient(description string) *oauthmodel.Error {
	return oauthmodel.NewError(oauthmodel.ErrCodeInvalidClient, description)
}

func invalidGrant(description string) *oauthmodel.Error {
	return oauthmodel.NewError(oauthmodel.ErrCodeInvalidGrant, description)
}

func invalidClientMetadata(description string) *oauthmodel.Error {
	return oauthmodel.NewError(oauthmodel.ErrCodeInvalidClientMetadata, description)
}

func serverError(err error) *oauthmodel.Error {
	return oauthmodel.NewError(oauthmodel.ErrCodeServerError, "internal server error").Wrap(err)
}
