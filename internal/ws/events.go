package ws

// Wire event names. These are the contract with the UI and must not
// change spelling.
const (
	EventConnectionStatus = "connection_status"
	EventRoomJoined       = "room_joined"
	EventChatMessage      = "chat_message"
	EventMessageReceived  = "message_received"
	EventToolCallStart    = "tool_call_start"
	EventToolCallEnd      = "tool_call_end"
	EventToolCallError    = "tool_call_error"
	EventSequenceUpdate   = "sequence_update"
	EventEditReceived     = "edit_received"
	EventError            = "error"
)

// envelope is the frame shape in both directions: a named event plus
// its payload.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
