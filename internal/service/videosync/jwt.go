package videosync

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims bind a participant identity to a room for reconnects, so a dropped
// client can re-establish its connection without redoing the join handshake.
type Claims struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
}

func (s *service) generateAuthToken(roomId, participantId string) (string, error) {
	claims := jwt.MapClaims{
		"room_id":        roomId,
		"participant_id": participantId,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secret))
}

func (s *service) parseAuthToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token")
	}

	roomId, ok := claims["room_id"].(string)
	if !ok {
		return nil, errors.New("invalid token")
	}
	participantId, ok := claims["participant_id"].(string)
	if !ok {
		return nil, errors.New("invalid token")
	}

	return &Claims{
		RoomId:        roomId,
		ParticipantId: participantId,
	}, nil
}
