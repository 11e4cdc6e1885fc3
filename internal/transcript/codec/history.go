package codec

import (
	"encoding/json"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DecodeHistory decodes the bulk history body, an array of {info, parts}.
// Malformed entries and parts are skipped and logged; only a body that is
// not a JSON array is an error.
func (d *Decoder) DecodeHistory(body []byte) ([]types.Message, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewDecodeError("history is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, apperrors.NewDecodeError("history is not an array")
	}

	entries := root.Array()
	messages := make([]types.Message, 0, len(entries))
	for i, entry := range entries {
		msg, err := d.decodeHistoryEntry(entry)
		if err != nil {
			d.log.Warn("skipping history entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (d *Decoder) decodeHistoryEntry(entry gjson.Result) (types.Message, error) {
	info := entry.Get("info")
	if kind := classifyInfo(info); kind != infoMessage {
		return types.Message{}, apperrors.NewShapeError("history", "info is not a message (got "+kind.String()+")")
	}

	var msg types.Message
	if err := json.Unmarshal([]byte(info.Raw), &msg.Info); err != nil {
		return types.Message{}, apperrors.NewShapeError("history", err.Error())
	}

	parts := entry.Get("parts")
	if !parts.IsArray() {
		// absent parts stay nil: not loaded
		return msg, nil
	}

	msg.Parts = make([]types.Part, 0, len(parts.Array()))
	for _, raw := range parts.Array() {
		part, ok, err := DecodePart(raw)
		if err != nil {
			d.log.Warn("skipping history part",
				zap.String("message_id", msg.Info.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			msg.Parts = append(msg.Parts, part)
		}
	}
	return msg, nil
}
