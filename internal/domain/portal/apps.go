package portal

// Package portal defines the catalog of sandboxed sub-applications reachable
// from the portal, with their per-application role allow-lists.

import (
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

// Application describes one launchable sub-application tile.
type Application struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	// Roles is the allow-list: an app token is issued only when the
	// requesting session's role appears here.
	Roles []domainauth.Role `json:"roles"`
}

// AllowsRole reports whether the application's allow-list contains the role.
func (a Application) AllowsRole(role domainauth.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Catalog is a read-only application registry keyed by app ID.
type Catalog struct {
	apps  map[string]Application
	order []string
}

// NewCatalog builds a catalog from the given applications. Later entries with
// a duplicate ID overwrite earlier ones.
func NewCatalog(apps []Application) *Catalog {
	c := &Catalog{apps: make(map[string]Application, len(apps))}
	for _, app := range apps {
		if _, seen := c.apps[app.ID]; !seen {
			c.order = append(c.order, app.ID)
		}
		c.apps[app.ID] = app
	}
	return c
}

// Lookup returns the application for the given ID.
func (c *Catalog) Lookup(appID string) (Application, bool) {
	app, ok := c.apps[appID]
	return app, ok
}

// List returns all applications in registration order.
func (c *Catalog) List() []Application {
	out := make([]Application, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.apps[id])
	}
	return out
}

// ListForRole returns the applications whose allow-list contains the role.
func (c *Catalog) ListForRole(role domainauth.Role) []Application {
	out := make([]Application, 0, len(c.order))
	for _, id := range c.order {
		if app := c.apps[id]; app.AllowsRole(role) {
			out = append(out, app)
		}
	}
	return out
}

// DefaultApplications is the built-in application catalog.
func DefaultApplications() []Application {
	return []Application{
		{
			ID:          "bess",
			Name:        "BESS Dimension",
			Description: "Battery energy storage system sizing",
			Category:    "Engineering",
			Roles:       []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperations, domainauth.RoleStandard},
		},
		{
			ID:          "om-reports",
			Name:        "O&M Report Generator",
			Description: "Automated operations and maintenance reporting",
			Category:    "Operations",
			Roles:       []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperations},
		},
		{
			ID:          "om-dashboard",
			Name:        "O&M Dashboard",
			Description: "Live operations metrics and KPIs",
			Category:    "Operations",
			Roles:       []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperations},
		},
		{
			ID:          "sales",
			Name:        "Sales Dashboard",
			Description: "Commercial team analytics",
			Category:    "Commercial",
			Roles:       []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleSales},
		},
		{
			ID:          "sdd",
			Name:        "SDD Measurement Tool",
			Description: "Distribution subsystem measurement",
			Category:    "Engineering",
			Roles:       []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperations, domainauth.RoleStandard},
		},
	}
}
