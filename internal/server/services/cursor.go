package services

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/nodes"
)

var decimalID = regexp.MustCompile(`^[0-9]+$`)

type cursorPayload struct {
	CreatedAt string `json:"createdAt"`
	ID        string `json:"id"`
}

// EncodeCursor renders a listing position as an opaque base64url token.
func EncodeCursor(p nodes.Position) string {
	b, _ := json.Marshal(cursorPayload{
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        strconv.FormatInt(p.ID, 10),
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// means "from the start" and yields nil.
func DecodeCursor(token string) (*nodes.Position, error) {
	if token == "" {
		return nil, nil
	}
	invalid := fmt.Errorf("%w: invalid cursor", common.ErrInvalidArgument)

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return nil, invalid
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	var p cursorPayload
	if err := dec.Decode(&p); err != nil {
		return nil, invalid
	}
	if dec.More() {
		return nil, invalid
	}

	createdAt, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return nil, invalid
	}
	if !decimalID.MatchString(p.ID) {
		return nil, invalid
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil || id <= 0 {
		return nil, invalid
	}
	return &nodes.Position{CreatedAt: createdAt, ID: id}, nil
}
