package entity

import "time"

// ProjectStatus is the dashboard status of a project.
type ProjectStatus string

const (
	StatusActive    ProjectStatus = "Active"
	StatusOnHold    ProjectStatus = "On Hold"
	StatusCompleted ProjectStatus = "Completed"
	StatusArchived  ProjectStatus = "Archived"
)

var ProjectStatuses = []ProjectStatus{StatusActive, StatusOnHold, StatusCompleted, StatusArchived}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// MemberRole is the role a user plays inside one project.
type MemberRole string

const (
	MemberAdmin     MemberRole = "Admin"
	MemberDeveloper MemberRole = "Developer"
	MemberTester    MemberRole = "Tester"
	MemberManager   MemberRole = "Manager"
)

var MemberRoles = []MemberRole{MemberAdmin, MemberDeveloper, MemberTester, MemberManager}

func (r MemberRole) Valid() bool {
	for _, v := range MemberRoles {
		if r == v {
			return true
		}
	}
	return false
}

type Member struct {
	UserID string
	Role   MemberRole
}

type ProjectStats struct {
	TotalBugs    int
	OpenBugs     int
	ResolvedBugs int
}

// Project holds non-owning references to users (members, creator).
type Project struct {
	ID          string
	Name        string
	Description string
	Members     []Member
	CreatedBy   string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      ProjectStatus
	Archived    bool
	Tags        []string
	Stats       ProjectStats
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether userID is listed as a member.
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AddMember appends userID unless already present. Reports whether it was added.
func (p *Project) AddMember(userID string, role MemberRole) bool {
	if p.HasMember(userID) {
		return false
	}
	if role == "" {
		role = MemberDeveloper
	}
	p.Members = append(p.Members, Member{UserID: userID, Role: role})
	return true
}

// RemoveMember filters userID out of the member list.
func (p *Project) RemoveMember(userID string) {
	kept := p.Members[:0]
	for _, m := range p.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	p.Members = kept
}

// MemberIDs returns the referenced user ids in member order.
func (p *Project) MemberIDs() []string {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
