package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/readonly"
)

const authTemplateDataKey = "auth_template_data"

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	LoggedIn  bool   // Whether user is logged in
	Username  string // Current user's username (empty if not logged in)
	Role      string
	CanEdit   bool   // Editors and admins see the catalog forms
	CSRFToken string // CSRF token for forms
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Templates can access auth data via .Auth in the template data.
func AuthContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			CSRFToken: auth.GetCSRFToken(c),
		}

		if user := auth.CurrentUser(c); user != nil {
			authData.LoggedIn = true
			authData.Username = user.Username
			authData.Role = string(user.Role)
			authData.CanEdit = user.Role.CanEditCatalog()
		}

		c.Set(authTemplateDataKey, authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get(authTemplateDataKey); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}

// pages renders HTML templates with the per-user enrichment and auth data
// merged into the handler's own data.
type pages struct {
	profiles ProfileService
}

func (p *pages) render(c *gin.Context, status int, name string, data gin.H) {
	merged := gin.H{}
	if p.profiles != nil {
		for k, v := range p.profiles.Context(auth.CurrentUser(c)).Map() {
			merged[k] = v
		}
	}
	for k, v := range data {
		merged[k] = v
	}
	merged["Auth"] = GetAuthTemplateData(c)
	merged["ReadOnly"] = readonly.Enabled(c)
	c.HTML(status, name, merged)
}
