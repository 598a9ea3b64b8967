// Package types defines the JSON frames exchanged over the game websocket.
//
// Client -> Server (field "type" selects the variant):
//
//	CREATE_GAME     teamColor, tasks? (25 entries)
//	JOIN_GAME       gameId, teamColor
//	UPDATE_PROGRESS gameId, teamColor, cellIndex (0-24), completed
//	UPDATE_TASKS    gameId, tasks (25 entries)
//	RESET_PROGRESS  gameId, teamColor
//	CHECK_GAME      gameId
//	CHAT_MESSAGE    gameId, teamColor, teamName, message
//
// Server -> Client: see the Type* constants. Every state change carries the
// full game snapshot in "gameData".
package types

import (
	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
)

const (
	TypeGameCreated     = "GAME_CREATED"
	TypeGameJoined      = "GAME_JOINED"
	TypeTeamUpdated     = "TEAM_UPDATED"
	TypeProgressUpdated = "PROGRESS_UPDATED"
	TypeTasksUpdated    = "TASKS_UPDATED"
	TypeProgressReset   = "PROGRESS_RESET"
	TypeGameExists      = "GAME_EXISTS"
	TypeGameNotFound    = "GAME_NOT_FOUND"
	TypeError           = "ERROR"
	TypeImageUploaded   = "IMAGE_UPLOADED"
	TypeChatMessage     = "CHAT_MESSAGE"
)

type ServerMessage struct {
	Type          string                `json:"type"`
	GameID        string                `json:"gameId,omitempty"`
	TeamColor     string                `json:"teamColor,omitempty"`
	CellIndex     *int                  `json:"cellIndex,omitempty"`
	Completed     *bool                 `json:"completed,omitempty"`
	Lines         *int                  `json:"lines,omitempty"`
	Tasks         []string              `json:"tasks,omitempty"`
	ExistingTeams *[]engine.TeamSummary `json:"existingTeams,omitempty"`
	Image         *engine.Image         `json:"image,omitempty"`
	Chat          *engine.ChatEntry     `json:"chat,omitempty"`
	Message       string                `json:"message,omitempty"`
	GameData      *engine.Game          `json:"gameData,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: msg}
}

func GameNotFound(gameID string) ServerMessage {
	return ServerMessage{Type: TypeGameNotFound, GameID: gameID}
}

func GameExists(gameID string, roster []engine.TeamSummary) ServerMessage {
	if roster == nil {
		roster = []engine.TeamSummary{}
	}
	return ServerMessage{Type: TypeGameExists, GameID: gameID, ExistingTeams: &roster}
}

// Membership builds GAME_CREATED, GAME_JOINED or TEAM_UPDATED.
func Membership(kind, teamColor string, snap *engine.Game) ServerMessage {
	return ServerMessage{Type: kind, GameID: snap.ID, TeamColor: teamColor, GameData: snap}
}

func ImageUploaded(teamColor string, cellIndex int, img engine.Image, snap *engine.Game) ServerMessage {
	return ServerMessage{
		Type:      TypeImageUploaded,
		GameID:    snap.ID,
		TeamColor: teamColor,
		CellIndex: ptr(cellIndex),
		Image:     &img,
		GameData:  snap,
	}
}

// FromEvent renders an engine event together with the snapshot taken after it.
func FromEvent(e engine.Event, snap *engine.Game) ServerMessage {
	msg := ServerMessage{GameID: snap.ID, TeamColor: e.TeamColor, GameData: snap}

	switch e.Type {
	case engine.EvtProgressUpdated:
		msg.Type = TypeProgressUpdated
		msg.CellIndex = ptr(e.CellIndex)
		msg.Completed = ptr(e.Completed)
		msg.Lines = ptr(e.Lines)
	case engine.EvtTasksUpdated:
		msg.Type = TypeTasksUpdated
		msg.Tasks = e.Tasks
	case engine.EvtProgressReset:
		msg.Type = TypeProgressReset
	case engine.EvtChatAppended:
		msg.Type = TypeChatMessage
		msg.Chat = e.Chat
	}
	return msg
}
