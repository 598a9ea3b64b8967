package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
)

var ErrMalformedEvent = errors.New("malformed event")

const (
	TypeCreateGame     = "CREATE_GAME"
	TypeJoinGame       = "JOIN_GAME"
	TypeUpdateProgress = "UPDATE_PROGRESS"
	TypeUpdateTasks    = "UPDATE_TASKS"
	TypeResetProgress  = "RESET_PROGRESS"
	TypeCheckGame      = "CHECK_GAME"
)

// ClientMessage is the raw envelope. Pointer fields distinguish "absent" from zero.
type ClientMessage struct {
	Type      string   `json:"type"`
	GameID    string   `json:"gameId,omitempty"`
	TeamColor string   `json:"teamColor,omitempty"`
	CellIndex *int     `json:"cellIndex,omitempty"`
	Completed *bool    `json:"completed,omitempty"`
	Tasks     []string `json:"tasks,omitempty"`
	TeamName  string   `json:"teamName,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type Request interface{ isRequest() }

type CreateGame struct {
	TeamColor string
	Tasks     []string // nil selects the default deck
}

type JoinGame struct {
	GameID    string
	TeamColor string
}

type UpdateProgress struct {
	GameID    string
	TeamColor string
	CellIndex int
	Completed bool
}

type UpdateTasks struct {
	GameID string
	Tasks  []string
}

type ResetProgress struct {
	GameID    string
	TeamColor string
}

type CheckGame struct {
	GameID string
}

type ChatMessage struct {
	GameID    string
	TeamColor string
	TeamName  string
	Message   string
}

func (CreateGame) isRequest()     {}
func (JoinGame) isRequest()       {}
func (UpdateProgress) isRequest() {}
func (UpdateTasks) isRequest()    {}
func (ResetProgress) isRequest()  {}
func (CheckGame) isRequest()      {}
func (ChatMessage) isRequest()    {}

// NormalizeGameID makes ids typed by hand match the generated upper-case form.
func NormalizeGameID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEvent, fmt.Sprintf(format, args...))
}

// Decode parses one inbound frame into its typed request.
func Decode(data []byte) (Request, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, malformed("bad json")
	}
	return m.Request()
}

func (m ClientMessage) Request() (Request, error) {
	gameID := NormalizeGameID(m.GameID)
	color := strings.TrimSpace(m.TeamColor)

	needGame := func() error {
		if gameID == "" {
			return malformed("%s requires gameId", m.Type)
		}
		return nil
	}
	needColor := func() error {
		if color == "" {
			return malformed("%s requires teamColor", m.Type)
		}
		return nil
	}
	needTasks := func(optional bool) error {
		if m.Tasks == nil && optional {
			return nil
		}
		if len(m.Tasks) != engine.CellCount {
			return malformed("tasks must have %d entries, got %d", engine.CellCount, len(m.Tasks))
		}
		return nil
	}

	switch m.Type {
	case TypeCreateGame:
		if err := errors.Join(needColor(), needTasks(true)); err != nil {
			return nil, err
		}
		return CreateGame{TeamColor: color, Tasks: m.Tasks}, nil

	case TypeJoinGame:
		if err := errors.Join(needGame(), needColor()); err != nil {
			return nil, err
		}
		return JoinGame{GameID: gameID, TeamColor: color}, nil

	case TypeUpdateProgress:
		if err := errors.Join(needGame(), needColor()); err != nil {
			return nil, err
		}
		if m.CellIndex == nil || m.Completed == nil {
			return nil, malformed("%s requires cellIndex and completed", m.Type)
		}
		return UpdateProgress{GameID: gameID, TeamColor: color, CellIndex: *m.CellIndex, Completed: *m.Completed}, nil

	case TypeUpdateTasks:
		if err := errors.Join(needGame(), needTasks(false)); err != nil {
			return nil, err
		}
		return UpdateTasks{GameID: gameID, Tasks: m.Tasks}, nil

	case TypeResetProgress:
		if err := errors.Join(needGame(), needColor()); err != nil {
			return nil, err
		}
		return ResetProgress{GameID: gameID, TeamColor: color}, nil

	case TypeCheckGame:
		if err := needGame(); err != nil {
			return nil, err
		}
		return CheckGame{GameID: gameID}, nil

	case TypeChatMessage:
		if err := errors.Join(needGame(), needColor()); err != nil {
			return nil, err
		}
		return ChatMessage{GameID: gameID, TeamColor: color, TeamName: m.TeamName, Message: m.Message}, nil

	case "":
		return nil, malformed("missing type")
	default:
		return nil, malformed("unknown type %q", m.Type)
	}
}
