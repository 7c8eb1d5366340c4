package request

import (
	"encoding/json"
	"time"

	"github.com/mcoot/dotareg/internal/services/parser"
)

// RegisterPlayerRequest is the public sign-up body. MMR may be sent as a
// number or a string; peakmmr is accepted as an alias.
type RegisterPlayerRequest struct {
	Name    parser.Scalar  `json:"name"`
	Dota2ID parser.Scalar  `json:"dota2id"`
	PeakMMR *parser.Scalar `json:"peakmmr"`
	MMR     *parser.Scalar `json:"mmr"`
	Notes   parser.Scalar  `json:"notes"`
}

// MMRValue returns the submitted MMR, preferring peakmmr
func (r RegisterPlayerRequest) MMRValue() string {
	if r.PeakMMR != nil {
		return string(*r.PeakMMR)
	}
	if r.MMR != nil {
		return string(*r.MMR)
	}
	return ""
}

// UpdatePlayerRequest is the body for patching a player. Absent fields are kept.
type UpdatePlayerRequest struct {
	Name    *parser.Scalar `json:"name"`
	Dota2ID *parser.Scalar `json:"dota2id"`
	MMR     *parser.Scalar `json:"mmr"`
	Notes   *parser.Scalar `json:"notes"`
}

// ImportRequest is the body for a bulk import. Either Players or Text is set.
// Players is kept raw so malformed elements are reported per position.
type ImportRequest struct {
	Players        json.RawMessage `json:"players"`
	Text           string          `json:"text"`
	Format         string          `json:"format"`
	SkipDuplicates bool            `json:"skipDuplicates"`
	UpdateExisting bool            `json:"updateExisting"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateSessionRequest is the body for creating a registration session
type CreateSessionRequest struct {
	Title      string     `json:"title"`
	StartTime  *time.Time `json:"startTime"`
	Expiry     *time.Time `json:"expiry"`
	MaxPlayers *int       `json:"maxPlayers"`
	Activate   bool       `json:"activate"`
}

// ReopenSessionRequest is the body for reopening a closed session
type ReopenSessionRequest struct {
	StartTime  *time.Time `json:"startTime"`
	Expiry     *time.Time `json:"expiry"`
	MaxPlayers *int       `json:"maxPlayers"`
}

// NotificationRequest is the body for sending a webhook message
type NotificationRequest struct {
	Content string `json:"content"`
}
