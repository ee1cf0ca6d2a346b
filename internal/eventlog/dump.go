package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	dumpChunkSize = 200
	dumpMaxChunks = 8
)

var redactedKeys = map[string]bool{
	"password": true, "rootpassword": true, "secret": true, "api_key": true, "token": true,
}

// DumpChunks renders a raw event payload the way the billing activity log
// can hold it: indented JSON split into 200-character pieces, at most 8,
// each prefixed "RS PARAMS [i]: ". Credential fields are redacted.
func DumpChunks(raw []byte) []string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	body := raw
	var data any
	if err := json.Unmarshal(raw, &data); err == nil {
		if b, err := json.MarshalIndent(redact(data), "", "    "); err == nil {
			body = b
		}
	}

	runes := []rune(string(body))
	var chunks []string
	for i := 0; i < len(runes) && len(chunks) < dumpMaxChunks; i += dumpChunkSize {
		end := min(i+dumpChunkSize, len(runes))
		chunks = append(chunks, fmt.Sprintf("RS PARAMS [%d]: %s", len(chunks), string(runes[i:end])))
	}
	return chunks
}

// Dump writes the chunks of raw to sink as service-less records.
func Dump(ctx context.Context, sink Sink, raw []byte) int {
	chunks := DumpChunks(raw)
	for _, c := range chunks {
		sink.Record(ctx, 0, c)
	}
	return len(chunks)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if redactedKeys[strings.ToLower(k)] {
				t[k] = "[REDACTED]"
				continue
			}
			t[k] = redact(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
		return t
	default:
		return v
	}
}
