package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/storefront/internal/adapter/queue"
	"github.com/rl1809/storefront/internal/core/domain"
)

const principalKey = "principal"

func (h *HTTPHandler) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeMessage(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	principal, err := h.svc.Auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeMessage(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.writeError(c, err)
		return
	}

	c.Set(principalKey, principal)
	c.Next()
}

func (h *HTTPHandler) requireAdmin(c *gin.Context) {
	if !currentPrincipal(c).IsAdmin {
		writeMessage(c, http.StatusForbidden, "Admin access required")
		return
	}
	c.Next()
}

// requireTaskIdentity admits only the queue worker: it must name the task and
// present the shared task token.
func (h *HTTPHandler) requireTaskIdentity(c *gin.Context) {
	if c.GetHeader(queue.TaskNameHeader) == "" || !secretEqual(c.GetHeader(queue.TaskTokenHeader), h.taskToken) {
		writeMessage(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.Next()
}

func currentPrincipal(c *gin.Context) domain.Principal {
	value, _ := c.Get(principalKey)
	principal, _ := value.(domain.Principal)
	return principal
}

func secretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
