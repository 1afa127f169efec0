// Package privilege reports whether the bridge can reach serial devices and
// what the operator should do when it cannot.
package privilege

import (
	"fmt"
	"os"
	"os/user"
	"slices"
)

// Status describes the privileges of the running process.
type Status struct {
	Elevated bool
	UID      int
	User     string
	// SerialGroup is the group that owns serial devices on this platform,
	// empty when there is none.
	SerialGroup string
	// InSerialGroup reports membership of SerialGroup.
	InSerialGroup bool
}

// Sufficient reports whether the process can normally open serial devices.
func (s Status) Sufficient() bool {
	return s.Elevated || s.SerialGroup == "" || s.InSerialGroup
}

// Check inspects the current process.
func Check() Status {
	st := Status{
		Elevated:    IsElevated(),
		UID:         os.Geteuid(),
		SerialGroup: SerialGroup(),
	}
	if u, err := user.Current(); err == nil {
		st.User = u.Username
		if st.SerialGroup != "" {
			st.InSerialGroup = inGroup(u, st.SerialGroup)
		}
	}
	return st
}

func inGroup(u *user.User, name string) bool {
	g, err := user.LookupGroup(name)
	if err != nil {
		return false
	}
	ids, err := u.GroupIds()
	if err != nil {
		return false
	}
	return slices.Contains(ids, g.Gid)
}

// CurrentUserHint returns a message that can be shown when device access fails.
func CurrentUserHint() string {
	st := Check()
	if st.Elevated {
		return fmt.Sprintf("running as root (uid=%d)", st.UID)
	}
	return fmt.Sprintf("current uid=%d (%s); %s", st.UID, st.User, Hint())
}
