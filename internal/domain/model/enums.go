package model

// ServiceStatus names the states a Windows service controller reports.
// Persisted statuses are free-form strings; these constants cover the
// vocabulary of the ServiceControllerStatus enumeration.
type ServiceStatus string

const (
	ServiceStatusStopped         ServiceStatus = "Stopped"
	ServiceStatusStartPending    ServiceStatus = "StartPending"
	ServiceStatusStopPending     ServiceStatus = "StopPending"
	ServiceStatusRunning         ServiceStatus = "Running"
	ServiceStatusContinuePending ServiceStatus = "ContinuePending"
	ServiceStatusPausePending    ServiceStatus = "PausePending"
	ServiceStatusPaused          ServiceStatus = "Paused"
)

// ServiceStatusFromCode maps a numeric ServiceControllerStatus value, as
// emitted by older PowerShell ConvertTo-Json, to its name. Unknown codes
// return ok=false.
func ServiceStatusFromCode(code int) (ServiceStatus, bool) {
	switch code {
	case 1:
		return ServiceStatusStopped, true
	case 2:
		return ServiceStatusStartPending, true
	case 3:
		return ServiceStatusStopPending, true
	case 4:
		return ServiceStatusRunning, true
	case 5:
		return ServiceStatusContinuePending, true
	case 6:
		return ServiceStatusPausePending, true
	case 7:
		return ServiceStatusPaused, true
	default:
		return "", false
	}
}
