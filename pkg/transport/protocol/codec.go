package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// DefaultMaxMediaSize is the largest decoded media payload accepted (10 MiB)
const DefaultMaxMediaSize int64 = 10 * 1024 * 1024

// Codec defines the interface for frame encoding/decoding
type Codec interface {
	// Encode encodes a relay event to a text frame
	Encode(event domain.Event) ([]byte, error)

	// Decode decodes a text frame to a relay event
	Decode(data []byte) (domain.Event, error)
}

// JSONCodec implements Codec using JSON objects discriminated by "type"
type JSONCodec struct {
	maxMediaSize int64
}

// NewJSONCodec creates a new JSON codec. A non-positive maxMediaSize
// falls back to DefaultMaxMediaSize.
func NewJSONCodec(maxMediaSize int64) *JSONCodec {
	if maxMediaSize <= 0 {
		maxMediaSize = DefaultMaxMediaSize
	}
	return &JSONCodec{maxMediaSize: maxMediaSize}
}

// MaxMediaSize returns the media bound enforced by Decode
func (c *JSONCodec) MaxMediaSize() int64 {
	return c.maxMediaSize
}

// Decode implements the Codec interface.
//
// Frames that are not JSON objects, carry no string "type", or miss a
// required field fail with errors.ErrMalformedPayload. Unknown types decode
// to domain.Ignored and media above the bound to domain.OversizeMedia, both
// without an error.
func (c *JSONCodec) Decode(data []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Malformed("frame is not a JSON object", err)
	}
	if env.Type == nil {
		return nil, errors.Malformed("missing type discriminator", nil)
	}

	switch domain.EventKind(*env.Type) {
	case domain.KindJoin:
		var f joinFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		return domain.Join{Username: *f.Username}, nil

	case domain.KindMessage:
		var f messageFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		return domain.ChatMessage{Username: *f.Username, Text: *f.Text}, nil

	case domain.KindMedia:
		return c.decodeMedia(data)

	case domain.KindUsers:
		var f usersFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		return domain.RosterUpdate{Usernames: emptyToNil(f.Users)}, nil

	case domain.KindError:
		var f errorFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		return domain.ErrorNotice{Message: *f.Message}, nil

	default:
		return domain.Ignored{Type: *env.Type}, nil
	}
}

func (c *JSONCodec) decodeMedia(data []byte) (domain.Event, error) {
	var f mediaFrame
	if err := decodeFrame(data, &f); err != nil {
		return nil, err
	}

	payload := *f.Data
	var header string

	if strings.HasPrefix(payload, "data:") {
		var err error
		header, payload, err = splitDataURL(payload)
		if err != nil {
			return nil, err
		}
	}

	if size := encodedSize(payload); int64(size) > c.maxMediaSize {
		return domain.OversizeMedia{
			Username: *f.Username,
			Size:     size,
			Limit:    c.maxMediaSize,
		}, nil
	}

	decoded, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, errors.Malformed("media data is not valid base64", err)
	}

	return domain.MediaMessage{
		Username:    *f.Username,
		Data:        emptyToNil(decoded),
		ContentType: *f.ContentType,
		DataURL:     header,
	}, nil
}

// Encode implements the Codec interface
func (c *JSONCodec) Encode(event domain.Event) ([]byte, error) {
	var frame any

	switch e := event.(type) {
	case domain.Join:
		frame = joinFrame{
			Type:     string(domain.KindJoin),
			Username: lo.ToPtr(e.Username),
		}
	case domain.ChatMessage:
		frame = messageFrame{
			Type:     string(domain.KindMessage),
			Username: lo.ToPtr(e.Username),
			Text:     lo.ToPtr(e.Text),
		}
	case domain.MediaMessage:
		frame = mediaFrame{
			Type:        string(domain.KindMedia),
			Username:    lo.ToPtr(e.Username),
			Data:        lo.ToPtr(e.DataURL + base64.StdEncoding.EncodeToString(e.Data)),
			ContentType: lo.ToPtr(e.ContentType),
		}
	case domain.RosterUpdate:
		users := e.Usernames
		if users == nil {
			users = []string{}
		}
		frame = usersFrame{
			Type:  string(domain.KindUsers),
			Users: users,
		}
	case domain.ErrorNotice:
		frame = errorFrame{
			Type:    string(domain.KindError),
			Message: lo.ToPtr(e.Message),
		}
	default:
		return nil, errors.New(errors.ErrorTypeInternal, errors.CodeUnsupportedEvent, "event cannot be encoded").
			WithDetails(fmt.Sprintf("kind %q", kindOf(event)))
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeEncode, "failed to encode event")
	}

	return data, nil
}

func decodeFrame(data []byte, frame any) error {
	if err := json.Unmarshal(data, frame); err != nil {
		return errors.Malformed("frame fields have unexpected types", err)
	}

	if err := validate.Struct(frame); err != nil {
		return errors.Malformed("missing required field: "+missingFields(err), err)
	}

	return nil
}

func missingFields(err error) string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	return strings.Join(lo.Map(ve, func(fe validator.FieldError, _ int) string {
		return fe.Field()
	}), ", ")
}

// splitDataURL splits an RFC 2397 base64 data URL into its header,
// including the trailing comma, and the base64 payload
func splitDataURL(s string) (string, string, error) {
	meta, payload, ok := strings.Cut(s, ",")
	if !ok {
		return "", "", errors.Malformed("data URL has no payload", nil)
	}

	if !strings.HasSuffix(meta, ";base64") {
		return "", "", errors.Malformed("data URL is not base64 encoded", nil)
	}

	return meta + ",", payload, nil
}

// encodedSize returns the decoded length of a padded base64 string
func encodedSize(s string) int {
	n := base64.StdEncoding.DecodedLen(len(s))
	for i := len(s) - 1; i >= 0 && i >= len(s)-2 && s[i] == '='; i-- {
		n--
	}
	return n
}

// emptyToNil keeps decoded events comparable with ones built in code,
// where an empty slice is usually nil
func emptyToNil[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func kindOf(event domain.Event) domain.EventKind {
	if event == nil {
		return ""
	}
	return event.Kind()
}
