package auth

const (
	RoleAgent            = "agent"
	RoleTeamLead         = "team_lead"
	RoleWorkforceManager = "workforce_manager"
)

var allRoles = []string{RoleAgent, RoleTeamLead, RoleWorkforceManager}

func ValidRole(name string) bool {
	for _, role := range allRoles {
		if role == name {
			return true
		}
	}
	return false
}

// UserContext is the identity attached to a request after token verification.
type UserContext struct {
	UserID      string
	DisplayName string
	Role        string
}
