package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/spf13/pflag"
)

// directionValue is a pflag.Value accepting prev/next (or up/down).
type directionValue struct {
	dir mutate.Direction
}

var _ pflag.Value = (*directionValue)(nil)

func (d *directionValue) String() string { return d.dir.String() }

func (d *directionValue) Set(s string) error {
	dir, err := mutate.ParseDirection(s)
	if err != nil {
		return err
	}
	d.dir = dir
	return nil
}

func (d *directionValue) Type() string { return "direction" }

// statusValue is a pflag.Value restricted to the branch statuses.
type statusValue struct {
	status domain.BranchStatus
}

var _ pflag.Value = (*statusValue)(nil)

func (s *statusValue) String() string { return string(s.status) }

func (s *statusValue) Set(v string) error {
	up := strings.ToUpper(strings.TrimSpace(v))
	if !domain.ValidBranchStatuses[up] {
		return fmt.Errorf("invalid status %q (want PLANNED, ACTIVE, STANDBY, CLOSED or CANCELLED)", v)
	}
	s.status = domain.BranchStatus(up)
	return nil
}

func (s *statusValue) Type() string { return "status" }

// changedString returns a pointer to the flag value when the flag was set.
func changedString(flags *pflag.FlagSet, name string, v string) *string {
	if !flags.Changed(name) {
		return nil
	}
	return &v
}

func changedBool(flags *pflag.FlagSet, name string, v bool) *bool {
	if !flags.Changed(name) {
		return nil
	}
	return &v
}
