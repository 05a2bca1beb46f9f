package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller as established by AuthRequired. A nil *Identity
// means the request is anonymous.
type Identity struct {
	userID uuid.UUID
	roles  []string
}

func (i *Identity) UserID() uuid.UUID {
	if i == nil {
		return uuid.Nil
	}
	return i.userID
}

func (i *Identity) Roles() []string {
	if i == nil {
		return nil
	}
	return i.roles
}

func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.roles, role)
}

// IsAdmin reports whether the caller is an operator.
func (i *Identity) IsAdmin() bool { return i.HasRole(RoleAdmin) }

func (i *Identity) IsAuthenticated() bool {
	return i != nil && i.userID != uuid.Nil
}

// SetIdentity stores the caller on the gin context.
func SetIdentity(c *gin.Context, userID uuid.UUID, roles []string) {
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRolesKey, roles)
}

// GetIdentity reads the caller from the gin context. It returns nil for
// anonymous requests.
func GetIdentity(c *gin.Context) *Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}

	var roles []string
	if raw, ok := c.Get(ContextRolesKey); ok {
		roles, _ = raw.([]string)
	}
	return &Identity{userID: userID, roles: roles}
}

// MustGetIdentity returns the caller or aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) *Identity {
	id := GetIdentity(c)
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
