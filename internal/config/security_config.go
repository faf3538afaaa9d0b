// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token with the admin role required
)

// EndpointSecurityConfig maps "METHOD path-template" to the required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"GET /healthz": SecurityPublic,

	// Transactions - Access Protected
	"GET /api/v1/bookings/{id}":                            SecurityAccess,
	"GET /api/v1/sales/{id}":                               SecurityAccess,
	"POST /api/v1/{kind:bookings|sales}/{id}/status":       SecurityAccess,
	"GET /api/v1/{kind:bookings|sales}/{id}/notifications": SecurityAdmin,

	// Admin - Admin Protected
	"POST /api/v1/admin/sweep": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given endpoint
func GetSecurityLevel(method, pathTemplate string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method+" "+pathTemplate]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
