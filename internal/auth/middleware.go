package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// WorkerJobKey is the echo context key holding the authorized job ID.
const WorkerJobKey = "worker_job_id"

// RequireWorkerToken rejects requests without a valid Bearer worker token and
// records the job the token was issued for.
func RequireWorkerToken(signer *TokenSigner) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing worker token")
			}

			jobID, err := signer.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.Debug("worker token rejected", "error", err, "ip", c.RealIP())
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid worker token")
			}

			c.Set(WorkerJobKey, jobID)
			return next(c)
		}
	}
}

// WorkerJobID returns the job ID authorized by RequireWorkerToken.
func WorkerJobID(c echo.Context) (string, bool) {
	id, ok := c.Get(WorkerJobKey).(string)
	return id, ok && id != ""
}
