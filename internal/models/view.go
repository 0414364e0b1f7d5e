package models

// View is the camera/perspective mode a player reports. It doubles as the
// authority tie-breaker when a client reconciles conflicting remote states.
type View string

const (
	ViewFirstPerson View = "first-person"
	ViewThirdPerson View = "third-person"
)

// OrDefault returns the view, falling back to first-person when unset.
func (v View) OrDefault() View {
	if v == "" {
		return ViewFirstPerson
	}
	return v
}

func (v View) Valid() bool {
	return v == ViewFirstPerson || v == ViewThirdPerson
}
