package guard

// Decision is the outcome of evaluating a page requirement against a session.
type Decision int

const (
	Render Decision = iota
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-to-login"
	case RedirectHome:
		return "redirect-to-home"
	}
	return "unknown"
}

// Requirement describes who may see a page. Empty Roles means any authenticated user.
type Requirement struct {
	Public bool
	Roles  []string
}

// Identity is the part of a session the guard looks at.
type Identity struct {
	HasToken bool
	Role     string
}

var (
	PublicPage        = Requirement{Public: true}
	AuthenticatedPage = Requirement{}
)

// RolesPage requires a token and one of the given roles.
func RolesPage(roles ...string) Requirement {
	return Requirement{Roles: roles}
}

// Decide is a pure function of (identity, requirement).
func Decide(id Identity, req Requirement) Decision {
	if req.Public {
		return Render
	}
	if !id.HasToken {
		return RedirectLogin
	}
	if len(req.Roles) == 0 {
		return Render
	}
	for _, r := range req.Roles {
		if r == id.Role {
			return Render
		}
	}
	return RedirectHome
}
