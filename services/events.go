package services

import "github.com/grandebingo/bingo90-backend/models"

// Event vocabulary shared with every observer. Broadcast events reach all
// connected clients in emission order; targeted events go only to the client
// that issued the command.
const (
	EvInitialState    = "initialState"
	EvBallDrawn       = "ballDrawn"
	EvWinners         = "winnersAnnounced"
	EvCardsUpdate     = "cardsUpdate"
	EvUsersUpdate     = "usersUpdate"
	EvGameStarted     = "gameStarted"
	EvGameReset       = "gameReset"
	EvEventUpdate     = "eventUpdate"
	EvAutoStatus      = "autoStatusUpdate"
	EvOnlineCount     = "onlineCountUpdate"
	EvBalanceUpdate   = "balanceUpdate"
	EvRegistered      = "registrationSuccess"
	EvLoginSuccess    = "loginSuccess"
	EvAuthError       = "authError"
	EvPurchaseSuccess = "purchaseSuccess"
	EvPurchaseError   = "purchaseError"
	EvNotification    = "notification"
)

type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type BallDrawnPayload struct {
	Ball  int              `json:"ball"`
	Event models.GameEvent `json:"event"`
}

// Snapshot is sent to each observer on connect, before any incremental
// event, so local state always starts from a consistent base.
type Snapshot struct {
	Event models.GameEvent `json:"event"`
	Cards []models.Card    `json:"cards"`
	Users []models.User    `json:"users"`
}

// Broadcaster fans engine events out to all observers in emission order.
// The websocket hub implements it; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(event string, data any)
}
