package middleware

import (
	"net/http"
	"strconv"

	"github.com/findit-id/cbt-backend/internal/response"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// TestSessionHeader optionally names the exam session a guarded request acts
// within, so a revocation report can reference it.
const TestSessionHeader = "X-Test-Session"

// CheckSingleActiveSession validates the JWT's JTI against the member's
// single active auth session. A token whose session was superseded by a later
// login is rejected; the guard has already recorded the unfairness report and
// signed the user out by the time the 401 leaves.
func CheckSingleActiveSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for member tokens.
		if claims.TokenType != service.TokenTypeMember {
			c.Next()
			return
		}

		var testSessionID *string
		if v := c.GetHeader(TestSessionHeader); v != "" {
			testSessionID = &v
		}

		userID := strconv.Itoa(claims.UserID)
		if !authService.CheckSessionValidity(c.Request.Context(), claims.ID, userID, testSessionID) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRevoked)
			return
		}

		c.Next()
	}
}
