package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TicketHeader = "X-Analysis-Ticket"

	AnalysisIDKey contextKey = "analysis_id"
)

type contextKey string

var ErrInvalidTicket = errors.New("invalid analysis ticket")

// Tickets issues and verifies short-lived HS256 tokens that bind a client to
// one analysis ID, so it can follow progress of a run it started.
type Tickets struct {
	Secret []byte
	TTL    time.Duration
}

func NewTickets(secret string, ttl time.Duration) *Tickets {
	return &Tickets{Secret: []byte(secret), TTL: ttl}
}

// Issue creates a ticket for analysisID.
func (t *Tickets) Issue(analysisID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"analysis_id": analysisID.String(),
		"exp":         now.Add(t.TTL).Unix(),
		"iat":         now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// Verify returns the analysis ID carried by a valid, unexpired ticket.
func (t *Tickets) Verify(tokenStr string) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, ErrInvalidTicket
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidTicket
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidTicket
	}

	idStr, ok := claims["analysis_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidTicket
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, ErrInvalidTicket
	}
	return id, nil
}

// Middleware attaches the analysis ID of a valid X-Analysis-Ticket header to
// the request context. A missing or invalid ticket is not an error; the
// handler then picks a fresh ID.
func (t *Tickets) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get(TicketHeader); header != "" {
			if id, err := t.Verify(header); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), AnalysisIDKey, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// GetAnalysisID extracts the ticketed analysis ID from the request context.
func GetAnalysisID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(AnalysisIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
