// Package session implements stateless conversation continuity: the whole
// session state travels inside a signed, expiring token whose history
// payload is encrypted. The server keeps no session store.
package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"rag-chat-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// Exchange is one (role, text) history entry.
type Exchange struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// State is the deserialized session carried by a token. History holds the
// last K user/assistant exchanges, i.e. at most 2*K entries.
type State struct {
	SessionID    string
	MessageCount int
	History      []Exchange
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type tokenClaims struct {
	SessionID    string `json:"sid"`
	MessageCount int    `json:"mc"`
	History      string `json:"hist"`
	jwt.RegisteredClaims
}

const issuer = "rag-chat-backend"

// Service issues and validates session tokens. The signing key and the
// encryption key are distinct; forging a token requires both.
type Service struct {
	signingKey    []byte
	aead          cipher.AEAD
	expiry        time.Duration
	historyWindow int
}

func NewService(cfg *config.Config) (*Service, error) {
	// Derive a fixed-size AEAD key from the configured secret
	key := sha256.Sum256([]byte(cfg.EncryptionKey))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}

	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = 5
	}

	return &Service{
		signingKey:    []byte(cfg.SigningKey),
		aead:          aead,
		expiry:        time.Duration(cfg.TokenExpiryMinutes) * time.Minute,
		historyWindow: historyWindow,
	}, nil
}

// HistoryWindow returns K, the number of retained exchanges.
func (s *Service) HistoryWindow() int { return s.historyWindow }

// NewState initializes an empty session.
func (s *Service) NewState() State {
	now := time.Now()
	return State{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.expiry),
	}
}

// Issue serializes the state into a signed token. History is encrypted
// before it enters the claims; expiry is reset to now + configured window.
func (s *Service) Issue(state State) (string, error) {
	hist, err := s.encryptHistory(state.History)
	if err != nil {
		return "", err
	}

	now := time.Now()
	exp := now.Add(s.expiry)
	claims := tokenClaims{
		SessionID:    state.SessionID,
		MessageCount: state.MessageCount,
		History:      hist,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   state.SessionID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ValidateAndRefresh verifies signature and expiry, decrypts the history
// and advances the message counter. Any failure - bad signature, tampered
// ciphertext, malformed claims, expiry - yields a fresh empty session with
// isNew=true. An expired ticket is a normal "start new session" event, not
// an error, so this never returns one.
func (s *Service) ValidateAndRefresh(tokenString string) (State, bool) {
	if tokenString == "" {
		return s.NewState(), true
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return s.NewState(), true
	}

	if claims.MessageCount < 0 || claims.SessionID == "" {
		return s.NewState(), true
	}

	history, err := s.decryptHistory(claims.History)
	if err != nil {
		return s.NewState(), true
	}

	now := time.Now()
	state := State{
		SessionID:    claims.SessionID,
		MessageCount: claims.MessageCount + 1,
		History:      history,
		CreatedAt:    claims.IssuedAt.Time,
		ExpiresAt:    now.Add(s.expiry),
	}
	s.trim(&state)

	return state, false
}

// AppendExchange records a completed user/assistant turn, dropping the
// oldest exchange beyond the history window.
func (s *Service) AppendExchange(state *State, userText, assistantText string) {
	state.History = append(state.History,
		Exchange{Role: "user", Text: userText},
		Exchange{Role: "assistant", Text: assistantText},
	)
	s.trim(state)
}

func (s *Service) trim(state *State) {
	maxEntries := s.historyWindow * 2
	if len(state.History) > maxEntries {
		state.History = state.History[len(state.History)-maxEntries:]
	}
}

func (s *Service) encryptHistory(history []Exchange) (string, error) {
	if history == nil {
		history = []Exchange{}
	}
	plain, err := json.Marshal(history)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := s.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Service) decryptHistory(encoded string) ([]Exchange, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var history []Exchange
	if err := json.Unmarshal(plain, &history); err != nil {
		return nil, err
	}
	return history, nil
}
