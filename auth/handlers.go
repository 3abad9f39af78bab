package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/skeehn/reverseturing/domain"
)

var (
	ErrMissingTokenStr          = "missing-token"
	ErrExpiredTokenStr          = "expired-token"
	ErrServerTimeoutStr         = "server-timeout"
	ErrInvalidRequestFormatStr  = "bad-request-format"
	ErrInvalidCredentialsStr    = "invalid-credentials"
	ErrUnknownStr               = "unknown-error"
	ErrUsernameAlreadyExistsStr = "username-already-exists"
	ErrWeakPasswordStr          = "weak-password"
	ErrPasswordTooLongStr       = "password-too-long"
	ErrInvalidUsernameFormatStr = "invalid-username-format"
	ErrAccountCreatedButNoToken = "account-created-but-no-token"
)

type authHandler struct {
	authService  AuthService
	cookieMaxAge time.Duration
}

func NewAuthHandler(service AuthService, cookieMaxAge time.Duration) *authHandler {
	return &authHandler{authService: service, cookieMaxAge: cookieMaxAge}
}

// redactToken keeps enough of a JWT's signature to correlate log
// lines without logging a replayable credential.
func redactToken(token string) string {
	tokenParts := strings.Split(token, ".")
	if len(tokenParts) != 3 {
		return token
	}
	sneak := ""
	r := []rune(tokenParts[2])
	if len(r) >= 10 {
		sneak = string(r[:10]) + strings.Repeat("*", len(r)-10)
	} else {
		sneak = tokenParts[2]
	}
	return tokenParts[0] + "." + tokenParts[1] + "." + sneak
}

func (ah *authHandler) RequireAuthMiddleware(trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie("token")
		if err != nil {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}

		id, err := ah.authService.VerifyToken(token)

		if err != nil {
			clientIP := ctx.ClientIP()
			userAgent := ctx.Request.UserAgent()

			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg),
				errors.Is(err, domain.ErrInvalidTokenSignature),
				errors.Is(err, domain.ErrCorruptedToken):

				log.Warn().Str("module", "auth").
					Str("ip", clientIP).
					Str("user_agent", userAgent).
					Str("token", redactToken(token)).
					Err(err).
					Msg("RequireAuthMiddleware: suspicious token attempt")

				time.Sleep(trollTime)
				ctx.Status(http.StatusInternalServerError)
				ctx.Abort()

			case errors.Is(err, domain.ErrExpiredToken):
				log.Info().Str("module", "auth").Str("ip", clientIP).Str("token", redactToken(token)).Msg("RequireAuthMiddleware: token expired")
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
				ctx.Abort()

			default:
				log.Error().Str("module", "auth").
					Str("ip", clientIP).
					Str("token", redactToken(token)).
					Err(err).
					Msg("RequireAuthMiddleware: internal auth error")

				ctx.String(http.StatusUnauthorized, ErrUnknownStr)
				ctx.Abort()
			}

			return
		}
		ctx.Set("id", id)
		ctx.Next()
	}
}

// OptionalAuthMiddleware sets "id" when a valid token is present and
// lets everyone else through without one. Used on the game join route,
// where an unauthenticated visitor plays as a guest.
func (ah *authHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie("token")
		if err != nil {
			ctx.Next()
			return
		}

		id, err := ah.authService.VerifyToken(token)
		if err != nil {
			log.Info().Str("module", "auth").
				Str("ip", ctx.ClientIP()).
				Str("token", redactToken(token)).
				Err(err).
				Msg("OptionalAuthMiddleware: ignoring invalid token")
			ctx.Next()
			return
		}

		ctx.Set("id", id)
		ctx.Next()
	}
}

func (ah *authHandler) LoginHandler(ctx *gin.Context) {
	var loginCredentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	err := ctx.ShouldBindJSON(&loginCredentials)

	if err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	reqCtx := ctx.Request.Context()

	token, err := ah.authService.Login(reqCtx, loginCredentials.Username, loginCredentials.Password)

	if err != nil {
		clientIP := ctx.ClientIP()
		userAgent := ctx.Request.UserAgent()
		switch {
		case errors.Is(err, ErrIncorrectPassword), errors.Is(err, domain.ErrUserNotFound):
			ctx.String(http.StatusUnauthorized, ErrInvalidCredentialsStr)
			ctx.Abort()
		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
			ctx.Abort()
		case errors.Is(err, context.Canceled):
			ctx.Status(499)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedDatabaseError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", loginCredentials.Username).
				Err(err).
				Msg("Login: Database returned an unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedPasswordHashComparisonError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", loginCredentials.Username).
				Int("password_len", utf8.RuneCountInString(loginCredentials.Password)).
				Err(err).
				Msg("Login: Hashing comparison error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedTokenGenerationError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", loginCredentials.Username).
				Err(err).
				Msg("Login: Token generation error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()
		default:
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", loginCredentials.Username).
				Err(err).
				Msg("Login: Unknown unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()
		}
		return
	}

	ctx.SetCookie("token", token, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) SignupHandler(ctx *gin.Context) {
	var signupCredentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	err := ctx.ShouldBindJSON(&signupCredentials)

	if err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	reqCtx := ctx.Request.Context()

	token, err := ah.authService.Signup(reqCtx, signupCredentials.Username, signupCredentials.Password)

	if err != nil {
		clientIP := ctx.ClientIP()
		userAgent := ctx.Request.UserAgent()

		switch {
		case errors.Is(err, domain.ErrDuplicateUsername):
			ctx.String(http.StatusConflict, ErrUsernameAlreadyExistsStr)

		case errors.Is(err, ErrWeakPassword):
			ctx.String(http.StatusBadRequest, ErrWeakPasswordStr)

		case errors.Is(err, ErrPasswordTooLong):
			ctx.String(http.StatusBadRequest, ErrPasswordTooLongStr)

		case errors.Is(err, ErrInvalidUsernameFormat):
			ctx.String(http.StatusBadRequest, ErrInvalidUsernameFormatStr)

		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)

		case errors.Is(err, context.Canceled):
			ctx.Status(499) // http code for "Client Closed Request"

		case errors.Is(err, domain.UnexpectedDatabaseError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", signupCredentials.Username).
				Err(err).
				Msg("Signup: Database returned an unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)

		case errors.Is(err, domain.HashingError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", signupCredentials.Username).
				Int("password_len", utf8.RuneCountInString(signupCredentials.Password)).
				Err(err).
				Msg("Signup: Password hashing error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)

		case errors.Is(err, domain.UnexpectedTokenGenerationError):
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", signupCredentials.Username).
				Err(err).
				Msg("Signup: Token generation error")
			ctx.String(http.StatusInternalServerError, ErrAccountCreatedButNoToken)

		default:
			log.Error().Str("module", "auth").
				Str("ip", clientIP).
				Str("user_agent", userAgent).
				Str("username", signupCredentials.Username).
				Err(err).
				Msg("Signup: Unknown unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		}
		ctx.Abort()
		return
	}

	ctx.SetCookie("token", token, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusCreated)
}

func (ah *authHandler) RefreshSessionHandler(ctx *gin.Context) {
	token, err := ctx.Cookie("token")
	if err != nil {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := ah.authService.VerifyToken(token)
	if err != nil {
		log.Warn().Str("module", "auth").
			Str("ip", ctx.ClientIP()).
			Str("user_agent", ctx.Request.UserAgent()).
			Str("token", redactToken(token)).
			Err(err).
			Msg("Refresh: Invalid token provided")
		ctx.String(http.StatusUnauthorized, "bad-token")
		return
	}

	newToken, err := ah.authService.GenerateToken(id)
	if err != nil {
		log.Error().Str("module", "auth").
			Str("ip", ctx.ClientIP()).
			Str("user_agent", ctx.Request.UserAgent()).
			Str("user_id", id).
			Err(err).
			Msg("Refresh: Failed to generate new token")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.SetCookie("token", newToken, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) LogoutHandler(ctx *gin.Context) {
	ctx.SetCookie("token", "", -1, "/", "", true, true)
}
