package services

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/grandebingo/bingo90-backend/models"
	"github.com/grandebingo/bingo90-backend/utils/logger"

	"github.com/gorilla/websocket"
)

// Client is the middleman between one websocket connection and the hub.
// Commands come in on readPump; targeted replies go straight to this
// connection while broadcasts arrive through the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

type command struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// emit sends a targeted event to this client only.
func (c *Client) emit(event string, data any) {
	b, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		logger.Errorf("marshal %s event: %v", event, err)
		return
	}
	select {
	case c.send <- b:
	default:
		logger.Warnf("dropping %s event to slow client", event)
	}
}

func (c *Client) notify(message string) {
	c.emit(EvNotification, map[string]string{"message": message})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			logger.Debugf("invalid command payload: %v", err)
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debugf("websocket write: %v", err)
			return
		}
	}
}

func (c *Client) dispatch(cmd command) {
	game := c.hub.game

	switch cmd.Action {
	case "registerUser":
		var p struct {
			Name     string `json:"name"`
			Whatsapp string `json:"whatsapp"`
			Password string `json:"password"`
			PixKey   string `json:"pixKey"`
		}
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			c.emit(EvAuthError, "invalid registration data")
			return
		}
		user, err := game.RegisterUser(p.Name, p.Whatsapp, p.Password, p.PixKey)
		if err != nil {
			c.emit(EvAuthError, err.Error())
			return
		}
		c.emit(EvRegistered, user)

	case "loginUser":
		var p struct {
			Whatsapp string `json:"whatsapp"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			c.emit(EvAuthError, "invalid login data")
			return
		}
		user, err := game.Authenticate(p.Whatsapp, p.Password)
		if err != nil {
			c.emit(EvAuthError, err.Error())
			return
		}
		c.emit(EvLoginSuccess, user)

	case "buySeries":
		var p struct {
			UserID string `json:"userId"`
			Qty    int    `json:"qty"`
		}
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			c.emit(EvPurchaseError, "invalid purchase data")
			return
		}
		user, err := game.PurchaseSeries(p.UserID, p.Qty)
		if err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				c.emit(EvPurchaseError, "insufficient balance")
			} else {
				c.emit(EvPurchaseError, err.Error())
			}
			return
		}
		c.emit(EvBalanceUpdate, user.Balance)
		c.emit(EvPurchaseSuccess, nil)

	case "addBalance":
		var p struct {
			UserID string  `json:"userId"`
			Amount float64 `json:"amount"`
		}
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			c.notify("invalid deposit data")
			return
		}
		user, err := game.AddBalance(p.UserID, p.Amount)
		if err != nil {
			c.notify(err.Error())
			return
		}
		c.emit(EvBalanceUpdate, user.Balance)

	case "adminStartGame":
		if err := game.StartGame(); err != nil {
			c.notify(err.Error())
		}

	case "adminDrawBall":
		if err := game.DrawBall(); err != nil {
			c.notify(err.Error())
		}

	case "adminToggleAuto":
		var enabled bool
		if err := json.Unmarshal(cmd.Data, &enabled); err != nil {
			c.notify("invalid auto-draw toggle")
			return
		}
		if err := game.SetAutoDraw(enabled); err != nil {
			c.notify(err.Error())
		}

	case "adminReset":
		if err := game.ResetEvent(); err != nil {
			c.notify(err.Error())
		}

	case "adminUpdateConfig":
		var p struct {
			CardPrice    float64          `json:"cardPrice"`
			StartMode    models.StartMode `json:"startMode"`
			AutoInterval int              `json:"autoInterval"`
		}
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			c.notify("invalid config data")
			return
		}
		if _, err := game.UpdateConfig(p.CardPrice, p.StartMode, p.AutoInterval); err != nil {
			c.notify(err.Error())
		}

	default:
		logger.Debugf("unknown action: %s", cmd.Action)
	}
}
