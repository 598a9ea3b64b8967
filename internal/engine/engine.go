package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrGameNotFound = errors.New("game not found")
var ErrTeamNotFound = errors.New("team not found")
var ErrCellIndexOutOfRange = errors.New("cell index out of range")
var ErrInvalidTasks = errors.New("invalid task list")
var ErrEmptyMessage = errors.New("empty chat message")
var ErrMessageTooLong = errors.New("chat message too long")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	ChatLimit       = 100
	MaxMessageRunes = 500
)

type Image struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Team struct {
	Color       string          `json:"color"`
	Completed   [CellCount]bool `json:"completed"`
	Lines       int             `json:"lines"`
	MemberCount int             `json:"memberCount"`
	Images      map[int][]Image `json:"images"`
}

type ChatEntry struct {
	TeamColor string    `json:"teamColor"`
	TeamName  string    `json:"teamName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Game struct {
	ID        string      `json:"id"`
	Tasks     []string    `json:"tasks"`
	Teams     []*Team     `json:"teams"`
	Chat      []ChatEntry `json:"chat"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TeamSummary is the condensed roster entry used to preview a game before joining.
type TeamSummary struct {
	Color       string `json:"color"`
	MemberCount int    `json:"memberCount"`
	Progress    int    `json:"progress"`
	Lines       int    `json:"lines"`
}

func newTeam(color string) *Team {
	return &Team{
		Color:  color,
		Images: map[int][]Image{},
	}
}

// Team returns the team registered under color.
func (g *Game) Team(color string) (*Team, bool) {
	for _, t := range g.Teams {
		if t.Color == color {
			return t, true
		}
	}
	return nil, false
}

// FindOrCreateTeam registers one more member for color, creating the team on
// first use. Colours are taken as-is.
func (g *Game) FindOrCreateTeam(color string) *Team {
	if t, ok := g.Team(color); ok {
		t.MemberCount++
		return t
	}
	t := newTeam(color)
	t.MemberCount = 1
	g.Teams = append(g.Teams, t)
	return t
}

func (g *Game) SetTasks(tasks []string) error {
	if len(tasks) != CellCount {
		return fmt.Errorf("%w: want %d entries, got %d", ErrInvalidTasks, CellCount, len(tasks))
	}
	g.Tasks = append([]string(nil), tasks...)
	return nil
}

// AppendChat appends e and keeps only the newest ChatLimit entries.
func (g *Game) AppendChat(e ChatEntry) {
	g.Chat = append(g.Chat, e)
	if over := len(g.Chat) - ChatLimit; over > 0 {
		g.Chat = append([]ChatEntry(nil), g.Chat[over:]...)
	}
}

func (g *Game) Roster() []TeamSummary {
	roster := make([]TeamSummary, 0, len(g.Teams))
	for _, t := range g.Teams {
		roster = append(roster, TeamSummary{
			Color:       t.Color,
			MemberCount: t.MemberCount,
			Progress:    t.Progress(),
			Lines:       t.Lines,
		})
	}
	return roster
}

func (t *Team) SetCell(idx int, completed bool) error {
	if !validCell(idx) {
		return fmt.Errorf("%w: %d", ErrCellIndexOutOfRange, idx)
	}
	t.Completed[idx] = completed
	t.Lines = CountLines(t.Completed)
	return nil
}

func (t *Team) Reset() {
	t.Completed = [CellCount]bool{}
	t.Lines = CountLines(t.Completed)
}

// DecrementMembers drops one member, never below zero. The team is kept.
func (t *Team) DecrementMembers() {
	if t.MemberCount > 0 {
		t.MemberCount--
	}
}

func (t *Team) RecordImage(idx int, img Image) error {
	if !validCell(idx) {
		return fmt.Errorf("%w: %d", ErrCellIndexOutOfRange, idx)
	}
	if t.Images == nil {
		t.Images = map[int][]Image{}
	}
	t.Images[idx] = append(t.Images[idx], img)
	return nil
}

func (t *Team) Progress() int {
	n := 0
	for _, c := range t.Completed {
		if c {
			n++
		}
	}
	return n
}

type CommandType string

const (
	CmdUpdateProgress CommandType = "UpdateProgress"
	CmdUpdateTasks    CommandType = "UpdateTasks"
	CmdResetProgress  CommandType = "ResetProgress"
	CmdChatMessage    CommandType = "ChatMessage"
)

/*
	CmdUpdateProgress -> EvtProgressUpdated (lines recomputed)
	CmdUpdateTasks    -> EvtTasksUpdated
	CmdResetProgress  -> EvtProgressReset
	CmdChatMessage    -> EvtChatAppended

	Joining and leaving are membership changes owned by the lobby, not commands.
*/

type Command struct {
	Type      CommandType
	TeamColor string
	CellIndex int
	Completed bool
	Tasks     []string
	TeamName  string
	Message   string
}

type EventType string

const (
	EvtProgressUpdated EventType = "ProgressUpdated"
	EvtTasksUpdated    EventType = "TasksUpdated"
	EvtProgressReset   EventType = "ProgressReset"
	EvtChatAppended    EventType = "ChatAppended"
)

type Event struct {
	Type      EventType
	TeamColor string
	CellIndex int
	Completed bool
	Lines     int
	Tasks     []string
	Chat      *ChatEntry
}

// Apply validates cmd against g and mutates g only when every check passed.
func Apply(g *Game, cmd Command, now time.Time) (Event, error) {
	switch cmd.Type {
	case CmdUpdateProgress:
		team, ok := g.Team(cmd.TeamColor)
		if !ok {
			return Event{}, fmt.Errorf("%w: %s", ErrTeamNotFound, cmd.TeamColor)
		}
		if err := team.SetCell(cmd.CellIndex, cmd.Completed); err != nil {
			return Event{}, err
		}
		return Event{
			Type:      EvtProgressUpdated,
			TeamColor: team.Color,
			CellIndex: cmd.CellIndex,
			Completed: cmd.Completed,
			Lines:     team.Lines,
		}, nil

	case CmdUpdateTasks:
		if err := g.SetTasks(cmd.Tasks); err != nil {
			return Event{}, err
		}
		return Event{Type: EvtTasksUpdated, Tasks: append([]string(nil), g.Tasks...)}, nil

	case CmdResetProgress:
		team, ok := g.Team(cmd.TeamColor)
		if !ok {
			return Event{}, fmt.Errorf("%w: %s", ErrTeamNotFound, cmd.TeamColor)
		}
		team.Reset()
		return Event{Type: EvtProgressReset, TeamColor: team.Color}, nil

	case CmdChatMessage:
		msg := strings.TrimSpace(cmd.Message)
		if msg == "" {
			return Event{}, ErrEmptyMessage
		}
		if utf8.RuneCountInString(msg) > MaxMessageRunes {
			return Event{}, ErrMessageTooLong
		}
		name := strings.TrimSpace(cmd.TeamName)
		if name == "" {
			name = TeamName(cmd.TeamColor)
		}
		entry := ChatEntry{
			TeamColor: cmd.TeamColor,
			TeamName:  name,
			Message:   msg,
			Timestamp: now,
		}
		g.AppendChat(entry)
		return Event{Type: EvtChatAppended, TeamColor: cmd.TeamColor, Chat: &entry}, nil

	default:
		return Event{}, ErrUnsupportedCommand
	}
}
