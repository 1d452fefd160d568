package protocol

// Requests sent by the hub.
const (
	ReqGetDriverVersion     = "get_driver_version"
	ReqGetDeviceState       = "get_device_state"
	ReqGetAvailableEntities = "get_available_entities"
	ReqGetEntityStates      = "get_entity_states"
	ReqEntityCommand        = "entity_command"
	ReqSubscribeEvents      = "subscribe_events"
	ReqUnsubscribeEvents    = "unsubscribe_events"
	ReqGetDriverMetadata    = "get_driver_metadata"
	ReqSetupDriver          = "setup_driver"
	ReqSetDriverUserData    = "set_driver_user_data"
)

// Response message names.
const (
	RespAuthentication    = "authentication"
	RespDriverVersion     = "driver_version"
	RespDeviceState       = "device_state"
	RespAvailableEntities = "available_entities"
	RespEntityStates      = "entity_states"
	RespDriverMetadata    = "driver_metadata"
	RespResult            = "result"
)

// Events sent by the hub.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventEnterStandby     = "enter_standby"
	EventExitStandby      = "exit_standby"
	EventAbortDriverSetup = "abort_driver_setup"
	EventOAuth2Authorized = "oauth2_authorized"
	EventOAuth2Revoked    = "oauth2_revoked"
)

// Events sent by the driver.
const (
	EventDeviceState       = "device_state"
	EventEntityChange      = "entity_change"
	EventDriverSetupChange = "driver_setup_change"
)

// Requests sent by the driver to the hub.
const (
	ReqGetOAuth2Token     = "get_oauth2_token"
	ReqRefreshOAuth2Token = "refresh_oauth2_token"
)

// DeviceState is the driver's connectivity to the devices it controls.
type DeviceState string

// Device states.
const (
	DeviceConnected    DeviceState = "CONNECTED"
	DeviceConnecting   DeviceState = "CONNECTING"
	DeviceDisconnected DeviceState = "DISCONNECTED"
	DeviceError        DeviceState = "ERROR"
)
