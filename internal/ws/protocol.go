package ws

import "encoding/json"

// Envelope frames every message on the wire. Inbound frames carry an
// optional ack id; the reply comes back as {"type":"ack","ack":<id>} with
// either the result or {"error": "..."} in data. Outbound broadcasts carry
// the event name in type.
type Envelope struct {
	Type string          `json:"type"`
	Ack  int64           `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Type string `json:"type"`
	Ack  int64  `json:"ack,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Inbound event names.
const (
	MsgJoinRoom      = "join_room"
	MsgLeaveRoom     = "leave_room"
	MsgPlaybackState = "playback_state"
	MsgSeek          = "seek"
	MsgSkip          = "skip"
	MsgVoteSkip      = "vote_skip"
	MsgChatMessage   = "chat_message"
	MsgQueueReorder  = "queue_reorder"
	MsgRemoveSong    = "remove_song"
	MsgSongVote      = "song_vote"
	MsgPromoteUser   = "promote_user"
	MsgKickUser      = "kick_user"
)

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type playbackPayload struct {
	RoomID      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

type seekPayload struct {
	RoomID      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
}

type chatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type reorderPayload struct {
	RoomID  string   `json:"roomId"`
	SongIDs []string `json:"songIds"`
}

type songPayload struct {
	RoomID string `json:"roomId"`
	SongID string `json:"songId"`
}

type songVotePayload struct {
	RoomID string `json:"roomId"`
	SongID string `json:"songId"`
	Vote   int    `json:"vote"`
}

type promotePayload struct {
	RoomID       string `json:"roomId"`
	TargetUserID string `json:"targetUserId"`
	Role         string `json:"role"`
}

type kickPayload struct {
	RoomID       string `json:"roomId"`
	TargetUserID string `json:"targetUserId"`
}
