package request

import "errors"

// CheckAdmissionRequest uses Class when set, otherwise Limit and WindowSeconds.
type CheckAdmissionRequest struct {
	Identifier    string `json:"identifier"`
	Class         string `json:"class,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	WindowSeconds int    `json:"window_seconds,omitempty"`
}

func (r *CheckAdmissionRequest) Validate() error {
	if r.Identifier == "" {
		return errors.New("identifier is required")
	}
	if r.Class == "" && (r.Limit <= 0 || r.WindowSeconds <= 0) {
		return errors.New("class or a positive limit and window_seconds is required")
	}
	return nil
}
