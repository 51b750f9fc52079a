package solution

import (
	"encoding/json"
	"fmt"
)

// Status is the closed set of solver outcomes written to the solver block.
type Status int

const (
	StatusNotSolved Status = iota
	StatusSuccess
	StatusNoSolution
	StatusTimeout
	StatusInvalidModel
	StatusException
)

// StatusNoData is the status string of a run whose instance had at most one node.
const StatusNoData = "no data"

var statusNames = [...]string{
	StatusNotSolved:    "not solved",
	StatusSuccess:      "success",
	StatusNoSolution:   "no solution found",
	StatusTimeout:      "time-out without solution",
	StatusInvalidModel: "invalid model",
	StatusException:    "exception",
}

func (s Status) Valid() bool { return s >= 0 && int(s) < len(statusNames) }

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus maps a status string back to its code.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown solver status %q", name)
}

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(int(s)) }

func (s *Status) UnmarshalJSON(b []byte) error {
	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return err
	}
	if !Status(code).Valid() {
		return fmt.Errorf("solver status code %d out of range", code)
	}
	*s = Status(code)
	return nil
}
