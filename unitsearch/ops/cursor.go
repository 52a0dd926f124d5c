package ops

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrPageToken is returned for tokens that are corrupt or were issued
// for a different query.
var ErrPageToken = errors.New("invalid page token")

// PageToken is the state carried between pages of one search
type PageToken struct {
	Offset int    `json:"offset"`
	Hash   string `json:"hash"`
}

// QueryHash binds a token to the record kind, query text and ordering.
func QueryHash(kind, queryText, sort string) string {
	h := sha256.New()
	for _, part := range []string{kind, strings.TrimSpace(queryText), sort} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// EncodePageToken encodes a token as base64url JSON without padding.
func EncodePageToken(t PageToken) string {
	payload, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecodePageToken decodes a token and checks it belongs to hash.
func DecodePageToken(token, hash string) (PageToken, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return PageToken{}, fmt.Errorf("%w: %v", ErrPageToken, err)
	}

	var t PageToken
	if err := json.Unmarshal(decoded, &t); err != nil {
		return PageToken{}, fmt.Errorf("%w: %v", ErrPageToken, err)
	}
	if t.Offset < 0 {
		return PageToken{}, fmt.Errorf("%w: negative offset", ErrPageToken)
	}
	if t.Hash != hash {
		return PageToken{}, fmt.Errorf("%w: issued for a different query", ErrPageToken)
	}
	return t, nil
}
