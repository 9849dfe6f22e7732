package rowers

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/go-sif/liquid/dataframe"
)

// Graph-walk Rowers run over an edge list of (project, user) Int pairs, such
// as a table of commits. Alternating them expands a set of users to the
// projects they touched, then to every user of those projects, one degree of
// separation per pair of rounds.

func edge(row *dataframe.Row, projectCol int, userCol int) (project uint, user uint, ok bool) {
	pid, err := row.GetInt(projectCol)
	if err != nil || pid < 0 {
		return 0, 0, false
	}
	uid, err := row.GetInt(userCol)
	if err != nil || uid < 0 {
		return 0, 0, false
	}
	return uint(pid), uint(uid), true
}

func orEmpty(b *bitset.BitSet) *bitset.BitSet {
	if b == nil {
		return bitset.New(0)
	}
	return b
}

// ProjectRower finds the projects touched by a set of users which are not
// already known
type ProjectRower struct {
	ProjectCol  int
	UserCol     int
	Users       *bitset.BitSet
	Projects    *bitset.BitSet
	NewProjects *bitset.BitSet
}

// NewProjectRower returns a ProjectRower expanding from users, skipping known projects
func NewProjectRower(projectCol int, userCol int, users *bitset.BitSet, projects *bitset.BitSet) *ProjectRower {
	return &ProjectRower{
		ProjectCol:  projectCol,
		UserCol:     userCol,
		Users:       orEmpty(users),
		Projects:    orEmpty(projects),
		NewProjects: bitset.New(0),
	}
}

// Visit records the project of an edge whose user is in the set
func (r *ProjectRower) Visit(row *dataframe.Row) bool {
	pid, uid, ok := edge(row, r.ProjectCol, r.UserCol)
	if ok && r.Users.Test(uid) && !r.Projects.Test(pid) {
		r.NewProjects.Set(pid)
	}
	return true
}

// Join merges the projects found by other
func (r *ProjectRower) Join(other *ProjectRower) *ProjectRower {
	r.NewProjects.InPlaceUnion(orEmpty(other.NewProjects))
	return r
}

// Clone returns a ProjectRower with the same inputs and no findings. The
// input sets are shared, since Visit never modifies them.
func (r *ProjectRower) Clone() *ProjectRower {
	return NewProjectRower(r.ProjectCol, r.UserCol, r.Users, r.Projects)
}

// UserRower finds the users of a set of projects which are not already known
type UserRower struct {
	ProjectCol int
	UserCol    int
	Users      *bitset.BitSet
	Projects   *bitset.BitSet
	NewUsers   *bitset.BitSet
}

// NewUserRower returns a UserRower expanding from projects, skipping known users
func NewUserRower(projectCol int, userCol int, users *bitset.BitSet, projects *bitset.BitSet) *UserRower {
	return &UserRower{
		ProjectCol: projectCol,
		UserCol:    userCol,
		Users:      orEmpty(users),
		Projects:   orEmpty(projects),
		NewUsers:   bitset.New(0),
	}
}

// Visit records the user of an edge whose project is in the set
func (r *UserRower) Visit(row *dataframe.Row) bool {
	pid, uid, ok := edge(row, r.ProjectCol, r.UserCol)
	if ok && r.Projects.Test(pid) && !r.Users.Test(uid) {
		r.NewUsers.Set(uid)
	}
	return true
}

// Join merges the users found by other
func (r *UserRower) Join(other *UserRower) *UserRower {
	r.NewUsers.InPlaceUnion(orEmpty(other.NewUsers))
	return r
}

// Clone returns a UserRower with the same inputs and no findings
func (r *UserRower) Clone() *UserRower {
	return NewUserRower(r.ProjectCol, r.UserCol, r.Users, r.Projects)
}
