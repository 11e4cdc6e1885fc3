package codec

import (
	"encoding/json"
	"strings"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	dataPrefix = "data:"

	// rawLogLimit caps how much of a dropped payload is logged
	rawLogLimit = 300

	defaultSessionError = "Session error occurred"
	unknownSessionError = "Unknown error"
)

// Result is the outcome of decoding one stream line.
// The zero value means the line carried nothing to apply.
type Result struct {
	Type  string
	Event types.ServerEvent
	Err   error
}

// Ignored reports whether the line produced neither an event nor an error
func (r Result) Ignored() bool {
	return r.Event == nil && r.Err == nil
}

// Decoder turns event stream lines into ServerEvents. It holds no state
// besides its logger; decode failures are returned as data and logged once.
type Decoder struct {
	log *logger.Logger
}

// NewDecoder creates a decoder that logs dropped events through log
func NewDecoder(log *logger.Logger) *Decoder {
	if log == nil {
		log = logger.Nop()
	}
	return &Decoder{log: log.Named("codec")}
}

// DecodeLine decodes one raw line. Lines that are not "data:" lines are
// ignored.
func (d *Decoder) DecodeLine(line string) Result {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return Result{}
	}
	payload = strings.TrimPrefix(payload, " ")
	return d.DecodePayload(payload)
}

// DecodePayload decodes the JSON document of a data line
func (d *Decoder) DecodePayload(payload string) Result {
	res := decodeEnvelope(payload)
	if res.Err != nil {
		d.log.Warn("dropping stream event",
			zap.String("type", res.Type),
			zap.Error(res.Err),
			zap.String("raw", truncate(payload, rawLogLimit)),
		)
	} else if res.Event == nil && res.Type != types.EventServerHeartbeat {
		d.log.Debug("ignoring stream event", zap.String("type", res.Type))
	}
	return res
}

func decodeEnvelope(payload string) Result {
	if payload == "" {
		return Result{Err: apperrors.NewDecodeError("empty data line")}
	}
	if !gjson.Valid(payload) {
		return Result{Err: apperrors.NewDecodeError("invalid JSON")}
	}

	root := gjson.Parse(payload)
	if !root.IsObject() {
		return Result{Err: apperrors.NewDecodeError("envelope is not an object")}
	}
	typ := root.Get("type")
	if typ.Type != gjson.String || typ.Str == "" {
		return Result{Err: apperrors.NewDecodeError("envelope type missing")}
	}

	// A properties value of the wrong shape degrades to "no payload";
	// each mapping below that needs a payload then reports a shape error.
	props := root.Get("properties")
	if !props.IsObject() {
		props = gjson.Result{}
	}

	event, err := mapEvent(typ.Str, props)
	return Result{Type: typ.Str, Event: event, Err: err}
}

func mapEvent(typ string, props gjson.Result) (types.ServerEvent, error) {
	switch typ {
	case types.EventMessageUpdated:
		info := props.Get("info")
		if kind := classifyInfo(info); kind != infoMessage {
			return nil, apperrors.NewShapeError(typ, "properties.info is not a message (got "+kind.String()+")")
		}
		var mi types.MessageInfo
		if err := json.Unmarshal([]byte(info.Raw), &mi); err != nil {
			return nil, apperrors.NewShapeError(typ, err.Error())
		}
		return types.MessageUpdated{Info: mi}, nil

	case types.EventMessagePartUpdated:
		raw := props.Get("part")
		if !raw.IsObject() {
			return nil, apperrors.NewShapeError(typ, "properties.part missing")
		}
		owner := raw.Get("messageID")
		if owner.Type != gjson.String || owner.Str == "" {
			return nil, apperrors.NewShapeError(typ, "part.messageID missing")
		}
		part, ok, err := DecodePart(raw)
		if err != nil {
			return nil, apperrors.NewShapeError(typ, err.Error())
		}
		if !ok {
			return nil, nil
		}
		return types.PartUpdated{
			MessageID: owner.Str,
			SessionID: raw.Get("sessionID").String(),
			Part:      part,
		}, nil

	case types.EventSessionUpdated:
		info := props.Get("info")
		if kind := classifyInfo(info); kind != infoSession {
			return nil, apperrors.NewShapeError(typ, "properties.info is not a session (got "+kind.String()+")")
		}
		var s types.Session
		if err := json.Unmarshal([]byte(info.Raw), &s); err != nil {
			return nil, apperrors.NewShapeError(typ, err.Error())
		}
		return types.SessionUpdated{Session: s}, nil

	case types.EventMessageRemoved:
		for _, key := range []string{"messageID", "messageId"} {
			if v := props.Get(key); v.Type == gjson.String && v.Str != "" {
				return types.MessageRemoved{MessageID: v.Str}, nil
			}
		}
		return nil, apperrors.NewShapeError(typ, "properties.messageID missing")

	case types.EventSessionError:
		return types.SessionError{Message: sessionErrorText(props)}, nil

	case types.EventServerConnected:
		return types.Connected{}, nil

	case types.EventSessionStatus, types.EventSessionIdle, types.EventSessionDiff, types.EventServerHeartbeat:
		return nil, nil

	default:
		return nil, nil
	}
}

// sessionErrorText prefers error.data.message, then error.name
func sessionErrorText(props gjson.Result) string {
	errObj := props.Get("error")
	if !errObj.IsObject() {
		return defaultSessionError
	}
	if msg := errObj.Get("data.message"); msg.Type == gjson.String {
		return msg.Str
	}
	if name := errObj.Get("name"); name.Type == gjson.String {
		return name.Str
	}
	return unknownSessionError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
