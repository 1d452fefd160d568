package protocol

// LanguageText maps a language code ("en", "de", ...) to text.
type LanguageText map[string]string

// DriverVersion is the msg_data of a driver_version response.
type DriverVersion struct {
	Name    string         `json:"name"`
	Version VersionDetails `json:"version"`
}

// VersionDetails lists the API and driver versions.
type VersionDetails struct {
	API    string `json:"api"`
	Driver string `json:"driver"`
}

// DeviceStatePayload is the msg_data of device_state frames.
type DeviceStatePayload struct {
	State DeviceState `json:"state"`
}

// EntityCommandRequest is the msg_data of an entity_command request.
type EntityCommandRequest struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type,omitempty"`
	CmdID      string         `json:"cmd_id"`
	Params     map[string]any `json:"params,omitempty"`
}

// EntityIDsRequest is the msg_data of subscribe_events and unsubscribe_events.
type EntityIDsRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

// EntityChange is the msg_data of an entity_change event.
// Attributes holds only the keys that changed.
type EntityChange struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Attributes map[string]any `json:"attributes"`
}

// SetupDriverRequest is the msg_data of a setup_driver request.
type SetupDriverRequest struct {
	Reconfigure bool              `json:"reconfigure"`
	SetupData   map[string]string `json:"setup_data"`
}

// SetDriverUserDataRequest is the msg_data of a set_driver_user_data request.
// Exactly one of InputValues and Confirm is set.
type SetDriverUserDataRequest struct {
	InputValues map[string]string `json:"input_values,omitempty"`
	Confirm     *bool             `json:"confirm,omitempty"`
}

// AbortDriverSetupEvent is the msg_data of an abort_driver_setup event.
type AbortDriverSetupEvent struct {
	Error string `json:"error"`
}

// OAuth2TokenRequest is the msg_data of get_oauth2_token and refresh_oauth2_token.
type OAuth2TokenRequest struct {
	AuthID       string `json:"auth_id,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SetupEventType distinguishes running from terminal setup changes.
type SetupEventType string

// Setup event types.
const (
	SetupEventSetup SetupEventType = "SETUP"
	SetupEventStop  SetupEventType = "STOP"
)

// SetupState is the wizard state reported to the hub.
type SetupState string

// Setup states.
const (
	SetupStateSetup          SetupState = "SETUP"
	SetupStateWaitUserAction SetupState = "WAIT_USER_ACTION"
	SetupStateOK             SetupState = "OK"
	SetupStateError          SetupState = "ERROR"
)

// SetupError is the reason attached to a failed setup.
type SetupError string

// Setup error reasons.
const (
	SetupErrorNone               SetupError = "NONE"
	SetupErrorNotFound           SetupError = "NOT_FOUND"
	SetupErrorConnectionRefused  SetupError = "CONNECTION_REFUSED"
	SetupErrorAuthorizationError SetupError = "AUTHORIZATION_ERROR"
	SetupErrorTimeout            SetupError = "TIMEOUT"
	SetupErrorOther              SetupError = "OTHER"
)

// DriverSetupChange is the msg_data of a driver_setup_change event.
type DriverSetupChange struct {
	EventType         SetupEventType     `json:"event_type"`
	State             SetupState         `json:"state"`
	Error             SetupError         `json:"error,omitempty"`
	RequireUserAction *RequireUserAction `json:"require_user_action,omitempty"`
}

// RequireUserAction asks the hub to show a form or a confirmation screen.
type RequireUserAction struct {
	Input        *UserInputForm    `json:"input,omitempty"`
	Confirmation *UserConfirmation `json:"confirmation,omitempty"`
}

// UserInputForm describes the next setup form. Settings are passed through
// verbatim; their layout is owned by the driver.
type UserInputForm struct {
	Title    LanguageText `json:"title"`
	Settings []any        `json:"settings"`
}

// UserConfirmation describes a confirmation screen.
type UserConfirmation struct {
	Title  LanguageText `json:"title"`
	Header LanguageText `json:"header,omitempty"`
	Image  string       `json:"image,omitempty"`
	Footer LanguageText `json:"footer,omitempty"`
}
