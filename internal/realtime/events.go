package realtime

const (
	EventConnected = "connected"
	EventError     = "error"

	EventProjectJoin     = "project:join"
	EventProjectLeave    = "project:leave"
	EventProjectJoined   = "project:joined"
	EventProjectLeft     = "project:left"
	EventProjectPresence = "project:presence"
	EventProjectUpdated  = "project:updated"
	EventUserJoined      = "project:user:joined"
	EventUserLeft        = "project:user:left"

	EventPermitComment       = "permit:comment"
	EventPermitCommentNew    = "permit:comment:new"
	EventPermitTyping        = "permit:typing"
	EventPermitTypingUpdate  = "permit:typing:update"
	EventPermitCreated       = "permit:created"
	EventPermitUpdated       = "permit:updated"
	EventPermitStatusChanged = "permit:status_changed"
	EventPermitDocument      = "permit:document_uploaded"
	EventPermitDeleted       = "permit:deleted"

	EventInspectionCreated         = "inspection:created"
	EventInspectionUpdated         = "inspection:updated"
	EventInspectionStatusChanged   = "inspection:status_changed"
	EventInspectionCriticalFinding = "inspection:critical_finding"
	EventInspectionDeleted         = "inspection:deleted"

	EventNotificationNew = "notification:new"
)

func ProjectRoom(projectID string) string { return "project:" + projectID }

func UserRoom(userID string) string { return "user:" + userID }
