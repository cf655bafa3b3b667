package models

// ActiveState is the normalized unit activation state.
type ActiveState string

const (
	ServiceActive   ActiveState = "active"
	ServiceInactive ActiveState = "inactive"
	ServiceFailed   ActiveState = "failed"
	ServiceUnknown  ActiveState = "unknown"
)

// NormalizeActiveState maps the systemctl ACTIVE column to ActiveState.
func NormalizeActiveState(raw string) ActiveState {
	switch raw {
	case "active", "reloading":
		return ServiceActive
	case "inactive", "deactivating":
		return ServiceInactive
	case "failed":
		return ServiceFailed
	default:
		return ServiceUnknown
	}
}

// ServiceRecord is one service unit as reported by the init system.
type ServiceRecord struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ActiveState ActiveState `json:"activeState"`
}
