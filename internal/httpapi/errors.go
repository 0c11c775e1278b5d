package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/auth"
)

// apiError is a response the client is meant to see verbatim.
type apiError struct {
	Status  int
	Message string
	Extra   gin.H
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) *apiError { return &apiError{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) *apiError   { return &apiError{Status: http.StatusNotFound, Message: msg} }

var authErrors = []struct {
	err error
	res apiError
}{
	{auth.ErrEmailRequired, apiError{Status: http.StatusBadRequest, Message: "Email required"}},
	{auth.ErrEmailTaken, apiError{Status: http.StatusConflict, Message: "Email already registered"}},
	{auth.ErrInvalidCredentials, apiError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}},
	{auth.ErrEmailNotVerified, apiError{
		Status:  http.StatusForbidden,
		Message: "Please verify your email address before logging in. Check your inbox for a verification email.",
		Extra:   gin.H{"needsVerification": true},
	}},
	{auth.ErrTokenRequired, apiError{Status: http.StatusBadRequest, Message: "Verification token required"}},
	{auth.ErrInvalidToken, apiError{Status: http.StatusBadRequest, Message: "Invalid verification token"}},
	{auth.ErrTokenExpired, apiError{Status: http.StatusBadRequest, Message: "Verification token has expired"}},
	{auth.ErrUnknownEmail, apiError{Status: http.StatusNotFound, Message: "Email not found"}},
	{auth.ErrAlreadyVerified, apiError{Status: http.StatusBadRequest, Message: "Email already verified"}},
	{auth.ErrVerificationPending, apiError{
		Status:  http.StatusBadRequest,
		Message: "Verification email already sent. Please check your inbox or wait before requesting another.",
	}},
	{auth.ErrSendFailed, apiError{Status: http.StatusInternalServerError, Message: "Failed to send verification email"}},
}

// writeError maps err to a status and message. Unknown errors are logged and
// reported with fallback, never with their own text.
func (s *Server) writeError(c *gin.Context, err error, fallback string) {
	var ae *apiError
	if errors.As(err, &ae) {
		respondError(c, *ae)
		return
	}
	for _, m := range authErrors {
		if errors.Is(err, m.err) {
			respondError(c, m.res)
			return
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, apiError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large"})
		return
	}
	s.log.Error(fallback, "path", c.FullPath(), "error", err)
	respondError(c, apiError{Status: http.StatusInternalServerError, Message: fallback})
}

func respondError(c *gin.Context, e apiError) {
	body := gin.H{"error": e.Message}
	for k, v := range e.Extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(e.Status, body)
}

// readJSON binds the request body into dst. An empty body leaves dst as
// decoded from an empty object.
func readJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	err := c.ShouldBindJSON(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return err
	default:
		return badRequest("Invalid JSON body")
	}
}
