package handlers

import (
	"errors"
	"fmt"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ServeWs authenticates the socket with its first frame and keeps it
// registered on the hub until the client goes away. Inbound frames after
// auth are ignored.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	var auth wsAuthMessage
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		log.WithError(err).Warn("WebSocket auth failed: invalid or missing auth message")
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		_ = c.Close()
		return
	}

	userID, err := h.parseToken(auth.Token)
	if err != nil {
		log.WithError(err).Warn("WebSocket auth failed: invalid token")
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		_ = c.Close()
		return
	}

	// acknowledge before registering; after that only the hub writes
	_ = c.WriteJSON(fiber.Map{"type": "auth.ok"})
	h.hub.Register(userID, c)
	log.WithField("user_id", userID).Info("WebSocket client registered")
	defer func() {
		h.hub.Unregister(userID, c)
		_ = c.Close()
		log.WithField("user_id", userID).Info("WebSocket client unregistered")
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				log.WithError(err).WithField("user_id", userID).Debug("WebSocket read error")
			}
			return
		}
	}
}

func (h *Handler) parseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	raw, _ := claims["user_id"].(string)
	return uuid.Parse(raw)
}
