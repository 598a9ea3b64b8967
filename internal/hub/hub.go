package hub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/lobby"
)

const (
	DefaultGameTTL       = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

type HubMsg interface{ isHubMsg() }

type CreateGame struct {
	Tasks []string // nil selects the default deck
	Reply chan createReply
}

type createReply struct {
	lobby *lobby.Lobby
	err   error
}

type GetGame struct {
	ID    string
	Reply chan *lobby.Lobby
}

type RemoveGame struct {
	ID string
}

// Sweep evicts every game older than the TTL at Now and replies with their ids.
type Sweep struct {
	Now   time.Time
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (RemoveGame) isHubMsg()  {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	GameTTL       time.Duration
	SweepInterval time.Duration // zero disables the background sweep
	Now           func() time.Time
	Logger        *zap.Logger
}

// Hub is the game store: it owns every lobby and their lifecycle.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.GameTTL <= 0 {
		cfg.GameTTL = DefaultGameTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     cfg.Logger.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.cfg.SweepInterval > 0 {
		ticker := time.NewTicker(h.cfg.SweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-tick:
			h.sweep(h.cfg.Now())

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				msg.Reply <- h.create(msg.Tasks)

			case GetGame:
				msg.Reply <- h.lobbies[msg.ID] // May be nil

			case RemoveGame:
				if lb := h.lobbies[msg.ID]; lb != nil {
					delete(h.lobbies, msg.ID)
					lb.Close()
				}

			case Sweep:
				msg.Reply <- h.sweep(msg.Now)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(tasks []string) createReply {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return createReply{err: fmt.Errorf("generate game id: %w", err)}
		}
		if h.lobbies[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on game id, regenerating", zap.String("game_id", c))
	}

	game := engine.NewGame(code, tasks, h.cfg.Now())
	lb := lobby.NewLobby(h.ctx, game, h.cfg.Logger, h.cfg.Now)
	h.lobbies[code] = lb

	h.log.Info("game created", zap.String("game_id", code), zap.Int("games", len(h.lobbies)))
	return createReply{lobby: lb}
}

func (h *Hub) sweep(now time.Time) []string {
	var evicted []string
	for id, lb := range h.lobbies {
		if now.Sub(lb.CreatedAt()) <= h.cfg.GameTTL {
			continue
		}
		delete(h.lobbies, id)
		lb.Close()
		evicted = append(evicted, id)
		h.log.Info("game expired", zap.String("game_id", id), zap.Time("created_at", lb.CreatedAt()))
	}
	return evicted
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
	h.cancel()
}
