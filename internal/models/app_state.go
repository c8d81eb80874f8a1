package models

import "time"

// APISettings holds the credentials and model used for the remote assistant API.
// An empty Key means no key has been configured.
type APISettings struct {
	Key   string `json:"key"`
	Model string `json:"model"`
}

// Masked returns a copy safe to hand to the UI.
func (s APISettings) Masked() APISettings {
	if s.Key == "" {
		return s
	}
	return APISettings{Key: "*****", Model: s.Model}
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Notification is the single transient message displayed to the user.
type Notification struct {
	ID         string        `json:"id"`
	Message    string        `json:"message"`
	Severity   Severity      `json:"severity"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// RequestState is the loading/error slot shared by API calls made through the app state.
type RequestState struct {
	Loading      bool    `json:"loading"`
	ErrorMessage *string `json:"errorMessage"`
}

// AppState is the snapshot handed to the UI.
type AppState struct {
	User         UserProfile   `json:"user"`
	API          APISettings   `json:"api"`
	DarkMode     bool          `json:"darkMode"`
	SidebarOpen  bool          `json:"sidebarOpen"`
	Request      RequestState  `json:"request"`
	Notification *Notification `json:"notification"`
}

// Public returns the snapshot with the API key masked, for handing to the UI.
func (s AppState) Public() AppState {
	s.API = s.API.Masked()
	return s
}
