package pipeline

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funnelkit/funnel/pkg/record"
)

// payloadBody is the JSON document carried by every generated record.
type payloadBody struct {
	Producer string  `json:"producer"`
	Seq      uint64  `json:"seq"`
	Kind     string  `json:"kind"`
	Value    float64 `json:"value"`
	Pad      string  `json:"pad,omitempty"`
}

// buildRecord assembles one record with a JSON payload padded to roughly
// targetBytes and a CRC-32 checksum the consumer verifies on receipt.
func buildRecord(producer string, seq uint64, kind record.Kind, targetBytes int, rng *rand.Rand) (record.Record, error) {
	body := payloadBody{
		Producer: producer,
		Seq:      seq,
		Kind:     string(kind),
		Value:    rng.Float64() * 100,
	}

	base, err := json.Marshal(body)
	if err != nil {
		return record.Record{}, fmt.Errorf("marshaling payload: %w", err)
	}
	if pad := targetBytes - len(base); pad > 0 {
		body.Pad = strings.Repeat("x", pad)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return record.Record{}, fmt.Errorf("marshaling padded payload: %w", err)
	}

	return record.Record{
		ID:        uuid.New(),
		Producer:  producer,
		Seq:       seq,
		Kind:      kind,
		Payload:   payload,
		Checksum:  crc32.ChecksumIEEE(payload),
		EmittedAt: time.Now().UTC(),
	}, nil
}
