package entity

// Role is the coarse permission class attached to a user.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleProjectManager Role = "ProjectManager"
	RoleDeveloper      Role = "Developer"
	RoleQA             Role = "QA"
)

// Roles lists every valid user role.
var Roles = []Role{RoleAdmin, RoleProjectManager, RoleDeveloper, RoleQA}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Provider is a third-party identity provider accepted by social login.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderGithub   Provider = "github"
)

var Providers = []Provider{ProviderGoogle, ProviderFacebook, ProviderGithub}

func (p Provider) Valid() bool {
	for _, v := range Providers {
		if p == v {
			return true
		}
	}
	return false
}
