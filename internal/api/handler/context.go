package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/devhub/community-api/internal/api/middleware"
	"github.com/devhub/community-api/internal/core/domain"
)

// ctxAccountID extracts the account identity injected by the access guard.
// A missing or empty value means the guard did not run or did not attach an
// identity.
func ctxAccountID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxAccountID).(string)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}
