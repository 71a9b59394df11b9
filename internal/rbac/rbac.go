package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleRecorder Role = "recorder"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionRecord Action = "record"
	ActionExport Action = "export"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleRecorder:
		return action == ActionRead || action == ActionRecord || action == ActionExport
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleRecorder, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
