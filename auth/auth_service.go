package auth

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-notes-mcp/authflow"
	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/identity"
	"github.com/jrsteele09/go-notes-mcp/internal/config"
	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
	"github.com/jrsteele09/go-notes-mcp/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// IdentityVerifier is the user verification step of the authorization flow.
type IdentityVerifier interface {
	AuthCodeURL(state string) string
	Verify(ctx context.Context, code string) (identity.VerifiedIdentity, error)
}

var _ IdentityVerifier = (*identity.Bridge)(nil)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Clients clients.Repo  // Registered OAuth clients
	Flows   authflow.Repo // Authorization requests waiting on the upstream provider
}

// AuthorizationService implements the OAuth 2.1 authorization code flow with
// PKCE. User verification is delegated to an upstream identity provider.
type AuthorizationService struct {
	repos    Repos
	tokens   *token.Manager
	verifier IdentityVerifier
	sealer   *authflow.StateSealer
	config   config.OAuthConfig
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	repos Repos,
	tokens *token.Manager,
	verifier IdentityVerifier,
	sealer *authflow.StateSealer,
	cfg config.OAuthConfig,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients repo is required")
	}
	if repos.Flows == nil {
		return nil, errors.New("[NewAuthorizationService] Flows repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizationService] token manager is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewAuthorizationService] identity verifier is required")
	}
	if sealer == nil {
		return nil, errors.New("[NewAuthorizationService] state sealer is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewAuthorizationService] config is required")
	}

	authService := &AuthorizationService{
		repos:    repos,
		tokens:   tokens,
		verifier: verifier,
		sealer:   sealer,
		config:   cfg,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(authService)
	}

	return authService, nil
}

// Register creates a client from RFC 7591 metadata. Confidential clients get
// a secret which is returned here once and only stored hashed.
func (as *AuthorizationService) Register(ctx context.Context, req oauth2.RegistrationRequest) (*oauth2.RegistrationResponse, error) {
	if oerr := ValidateRegistration(&req, as.config.GetSupportedScopes()); oerr != nil {
		return nil, oerr
	}

	client := &clients.Client{
		ID:            uuid.New().String(),
		Name:          req.ClientName,
		AuthMethod:    req.TokenEndpointAuthMethod,
		RedirectURIs:  req.RedirectURIs,
		GrantTypes:    req.GrantTypes,
		ResponseTypes: req.ResponseTypes,
		Scopes:        strings.Fields(req.Scope),
		CreatedAt:     as.nowTime(),
	}

	var secret string
	if client.AuthMethod.IsConfidential() {
		var err error
		if secret, err = utils.RandomString(32); err != nil {
			return nil, serverError(errors.Wrap(err, "[AuthorizationService.Register] random"))
		}
		if client.SecretHash, err = clients.HashSecret(secret); err != nil {
			return nil, serverError(errors.Wrap(err, "[AuthorizationService.Register] HashSecret"))
		}
	}

	if err := as.repos.Clients.Create(ctx, client); err != nil {
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Register] Clients.Create"))
	}

	log.Info().Str("clientID", client.ID).Str("authMethod", string(client.AuthMethod)).Msg("client registered")

	return &oauth2.RegistrationResponse{
		ClientID:                client.ID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: client.AuthMethod,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		ClientName:              client.Name,
		Scope:                   strings.Join(client.Scopes, " "),
	}, nil
}

// Authorize validates the request, parks it as a pending flow and returns
// the upstream provider URL the user agent should be sent to. Errors with
// Redirectable set belong on the client's redirect URI; all others must be
// shown directly.
func (as *AuthorizationService) Authorize(ctx context.Context, req *oauthmodel.AuthorizationRequest) (string, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return "", invalidRequest("client_id is required")
	}

	client, err := as.repos.Clients.Get(ctx, req.ClientID)
	if err != nil {
		if stderrors.Is(err, clients.ErrNotFound) {
			return "", invalidClient("unknown client_id")
		}
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Authorize] Clients.Get"))
	}

	if oerr := req.ValidateClient(client); oerr != nil {
		return "", oerr
	}

	if strings.TrimSpace(req.Scope) == "" {
		req.Scope = as.config.GetDefaultScope()
	}
	if oerr := req.ValidateParameters(client, as.config.GetSupportedScopes()); oerr != nil {
		return "", oerr
	}

	flowID := authflow.NewFlowID()
	flow := &authflow.PendingFlow{
		ClientID:            client.ID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: string(req.CodeChallengeMethod),
		Resource:            req.Resource,
		CreatedAt:           as.nowTime(),
	}
	if err := as.repos.Flows.Save(ctx, flowID, flow, as.config.GetPendingFlowTimeout()); err != nil {
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Authorize] Flows.Save")).Redirect()
	}

	state, err := as.sealer.Seal(flowID)
	if err != nil {
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Authorize] Seal")).Redirect()
	}

	return as.verifier.AuthCodeURL(state), nil
}

// Callback completes a flow when the upstream provider sends the user back.
// It returns the client redirect URL: with a code on success, with
// error=access_denied when the user could not be verified. An error is only
// returned when the state cannot be trusted, in which case there is no
// redirect target.
func (as *AuthorizationService) Callback(ctx context.Context, state, code, providerError string) (string, error) {
	flowID, err := as.sealer.Open(state)
	if err != nil {
		return "", invalidRequest("invalid or expired state").Wrap(err)
	}

	flow, err := as.repos.Flows.Take(ctx, flowID)
	if err != nil {
		if stderrors.Is(err, authflow.ErrFlowNotFound) {
			return "", invalidRequest("invalid or expired state").Wrap(err)
		}
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Callback] Flows.Take"))
	}

	if providerError != "" {
		log.Info().Str("clientID", flow.ClientID).Str("providerError", providerError).Msg("upstream sign-in failed")
		return ErrorRedirectURL(flow.RedirectURI, flow.State, oauthmodel.NewError(oauthmodel.ErrCodeAccessDenied, "sign-in was not completed"))
	}

	verified, err := as.verifier.Verify(ctx, code)
	if err != nil {
		description := "identity provider error"
		if apperrors.KindOf(err) == apperrors.KindAuthz {
			description = "user is not allowed"
		}
		log.Warn().Err(err).Str("clientID", flow.ClientID).Msg("identity verification failed")
		return ErrorRedirectURL(flow.RedirectURI, flow.State, oauthmodel.NewError(oauthmodel.ErrCodeAccessDenied, description))
	}

	rawCode, err := as.tokens.IssueCode(ctx, token.AuthorizationCode{
		ClientID:            flow.ClientID,
		RedirectURI:         flow.RedirectURI,
		Scope:               flow.Scope,
		Resource:            flow.Resource,
		CodeChallenge:       flow.CodeChallenge,
		CodeChallengeMethod: flow.CodeChallengeMethod,
		UserID:              verified.UserID,
	})
	if err != nil {
		log.Err(err).Str("clientID", flow.ClientID).Msg("failed to issue authorization code")
		return ErrorRedirectURL(flow.RedirectURI, flow.State, serverError(err))
	}

	params := url.Values{"code": {rawCode}}
	if flow.State != "" {
		params.Set("state", flow.State)
	}
	return RedirectURL(flow.RedirectURI, params)
}

// Token exchanges an authorization code. The code is consumed before any
// validation so a failed attempt cannot be retried.
func (as *AuthorizationService) Token(ctx context.Context, req oauthmodel.TokenRequest) (*oauth2.TokenResponse, error) {
	if req.GrantType != oauth2.AuthorizationCodeGrant {
		return nil, oauthmodel.NewError(oauthmodel.ErrCodeUnsupportedGrantType, "only authorization_code is supported")
	}
	if req.Code == "" {
		return nil, invalidRequest("code is required")
	}

	code, err := as.tokens.ConsumeCode(ctx, req.Code)
	if err != nil {
		if stderrors.Is(err, token.ErrCodeNotFound) || stderrors.Is(err, token.ErrCodeExpired) {
			return nil, invalidGrant("authorization code is invalid or expired").Wrap(err)
		}
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Token] ConsumeCode"))
	}

	// The code is already gone. A missing or unknown client_id is a
	// mismatch with the code, not a separate client error.
	if req.ClientID == "" {
		return nil, invalidGrant("client_id is required")
	}
	client, err := as.repos.Clients.Get(ctx, req.ClientID)
	if err != nil {
		if stderrors.Is(err, clients.ErrNotFound) {
			return nil, invalidGrant("authorization code was issued to another client")
		}
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Token] Clients.Get"))
	}
	if !client.IsPublic() && !client.VerifySecret(req.ClientSecret) {
		return nil, invalidClient("client authentication failed")
	}

	if code.ClientID != client.ID {
		return nil, invalidGrant("authorization code was issued to another client")
	}
	if req.RedirectURI != "" && req.RedirectURI != code.RedirectURI {
		return nil, invalidGrant("redirect_uri does not match the authorization request")
	}
	if !ValidateCodeVerifier(req.CodeVerifier) {
		return nil, invalidGrant("code_verifier is missing or malformed")
	}
	if !utils.ConstantTimeEqual(utils.S256Challenge(req.CodeVerifier), code.CodeChallenge) {
		return nil, invalidGrant("code_verifier does not match code_challenge")
	}

	rawToken, issued, err := as.tokens.IssueAccessToken(ctx, code)
	if err != nil {
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Token] IssueAccessToken"))
	}

	log.Info().Str("clientID", client.ID).Str("userID", issued.UserID).Msg("access token issued")

	return &oauth2.TokenResponse{
		AccessToken: rawToken,
		TokenType:   oauth2.BearerTokenType,
		ExpiresIn:   int(as.tokens.AccessTokenExpiry().Seconds()),
		Scope:       issued.Scope,
	}, nil
}

// ValidateAccessToken resolves a bearer value presented to the resource.
func (as *AuthorizationService) ValidateAccessToken(ctx context.Context, rawToken string) (*token.AccessToken, error) {
	t, err := as.tokens.Validate(ctx, rawToken)
	if err != nil {
		if stderrors.Is(err, token.ErrTokenNotFound) || stderrors.Is(err, token.ErrTokenExpired) {
			return nil, apperrors.Auth(err, "invalid or expired access token")
		}
		return nil, apperrors.Internal(errors.Wrap(err, "[AuthorizationService.ValidateAccessToken] Validate"))
	}
	return t, nil
}

// Revoke deletes an access token (RFC 7009). Unknown tokens and tokens held
// by another client are ignored so the response reveals nothing.
func (as *AuthorizationService) Revoke(ctx context.Context, rawToken, clientID string) error {
	t, err := as.tokens.Validate(ctx, rawToken)
	if err != nil {
		if stderrors.Is(err, token.ErrTokenNotFound) || stderrors.Is(err, token.ErrTokenExpired) {
			return nil
		}
		return errors.Wrap(err, "[AuthorizationService.Revoke] Validate")
	}
	if clientID != "" && t.ClientID != clientID {
		return nil
	}
	return errors.Wrap(as.tokens.Revoke(ctx, rawToken), "[AuthorizationService.Revoke] Revoke")
}

// Metadata returns the RFC 8414 authorization server metadata.
func (as *AuthorizationService) Metadata(baseURL string) *oauth2.AuthorizationServerMetadata {
	return &oauth2.AuthorizationServerMetadata{
		Issuer:                            baseURL,
		AuthorizationEndpoint:             baseURL + "/authorize",
		TokenEndpoint:                     baseURL + "/token",
		RegistrationEndpoint:              baseURL + "/register",
		RevocationEndpoint:                baseURL + "/revoke",
		ScopesSupported:                   as.config.GetSupportedScopes(),
		ResponseTypesSupported:            []string{string(oauth2.CodeResponseType)},
		ResponseModesSupported:            []string{"query"},
		GrantTypesSupported:               []string{string(oauth2.AuthorizationCodeGrant)},
		TokenEndpointAuthMethodsSupported: []string{string(oauth2.AuthMethodNone), string(oauth2.AuthMethodClientSecretPost), string(oauth2.AuthMethodClientSecretBasic)},
		CodeChallengeMethodsSupported:     []string{string(oauth2.CodeMethodTypeS256)},
	}
}

// ResourceMetadata returns the RFC 9728 metadata for the MCP endpoint.
func (as *AuthorizationService) ResourceMetadata(baseURL, resourceName string) *oauth2.ProtectedResourceMetadata {
	return &oauth2.ProtectedResourceMetadata{
		Resource:               baseURL + "/mcp",
		AuthorizationServers:   []string{baseURL},
		ScopesSupported:        as.config.GetSupportedScopes(),
		BearerMethodsSupported: []string{"header"},
		ResourceName:           resourceName,
	}
}
