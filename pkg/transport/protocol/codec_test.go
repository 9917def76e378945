package protocol

import (
	"encoding/base64"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := NewJSONCodec(0)

	tests := []struct {
		name  string
		event domain.Event
	}{
		{name: "join", event: domain.Join{Username: "alice"}},
		{name: "chat message", event: domain.ChatMessage{Username: "alice", Text: "hi"}},
		{name: "chat message with empty text", event: domain.ChatMessage{Username: "bob", Text: ""}},
		{name: "chat message with markup", event: domain.ChatMessage{Username: "eve", Text: "<b>&\"quoted\"</b>"}},
		{name: "media", event: domain.MediaMessage{Username: "alice", Data: []byte{0x00, 0xff, 0x10, 0x89, 'P', 'N', 'G'}, ContentType: "image/png"}},
		{name: "roster", event: domain.RosterUpdate{Usernames: []string{"alice", "bob", "alice"}}},
		{name: "empty roster", event: domain.RosterUpdate{}},
		{name: "empty media", event: domain.MediaMessage{Username: "alice", ContentType: ""}},
		{name: "media as data URL", event: domain.MediaMessage{Username: "alice", Data: []byte("GIF"), ContentType: "image/gif", DataURL: "data:image/gif;base64,"}},
		{name: "error notice", event: domain.ErrorNotice{Message: "File size exceeds limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := codec.Encode(tt.event)
			require.NoError(t, err)

			decoded, err := codec.Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestJSONCodec_EncodeWireShape(t *testing.T) {
	codec := NewJSONCodec(0)

	tests := []struct {
		name  string
		event domain.Event
		want  string
	}{
		{
			name:  "message",
			event: domain.ChatMessage{Username: "alice", Text: "hi"},
			want:  `{"type":"message","username":"alice","text":"hi"}`,
		},
		{
			name:  "users",
			event: domain.RosterUpdate{Usernames: []string{"alice", "bob"}},
			want:  `{"type":"users","users":["alice","bob"]}`,
		},
		{
			name:  "empty roster is an empty array",
			event: domain.RosterUpdate{},
			want:  `{"type":"users","users":[]}`,
		},
		{
			name:  "error",
			event: domain.ErrorNotice{Message: "File size exceeds limit"},
			want:  `{"type":"error","message":"File size exceeds limit"}`,
		},
		{
			name:  "media",
			event: domain.MediaMessage{Username: "alice", Data: []byte("abc"), ContentType: "text/plain"},
			want:  `{"type":"media","username":"alice","data":"YWJj","contentType":"text/plain"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := codec.Encode(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(frame))
		})
	}
}

func TestJSONCodec_DecodeMalformed(t *testing.T) {
	codec := NewJSONCodec(0)

	tests := []struct {
		name  string
		frame string
	}{
		{name: "not json", frame: `hello there`},
		{name: "truncated object", frame: `{"type":"message","username":"a"`},
		{name: "array", frame: `["message"]`},
		{name: "json null", frame: `null`},
		{name: "missing type", frame: `{"username":"alice"}`},
		{name: "numeric type", frame: `{"type":7,"username":"alice"}`},
		{name: "join without username", frame: `{"type":"join"}`},
		{name: "join with null username", frame: `{"type":"join","username":null}`},
		{name: "message without text", frame: `{"type":"message","username":"alice"}`},
		{name: "message without username", frame: `{"type":"message","text":"hi"}`},
		{name: "message with numeric text", frame: `{"type":"message","username":"alice","text":1}`},
		{name: "media without data", frame: `{"type":"media","username":"alice","contentType":"image/png"}`},
		{name: "media without content type", frame: `{"type":"media","username":"alice","data":"YWJj"}`},
		{name: "media with invalid base64", frame: `{"type":"media","username":"alice","data":"***","contentType":"image/png"}`},
		{name: "media with non-canonical base64", frame: `{"type":"media","username":"alice","data":"AAECAx==","contentType":"image/png"}`},
		{name: "media with plain data URL", frame: `{"type":"media","username":"alice","data":"data:text/plain,hello","contentType":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := codec.Decode([]byte(tt.frame))
			require.Error(t, err)
			assert.Nil(t, event)
			assert.True(t, stderrors.Is(err, errors.ErrMalformedPayload), "got %v", err)
		})
	}
}

func TestJSONCodec_DecodeMissingFieldDetails(t *testing.T) {
	codec := NewJSONCodec(0)

	_, err := codec.Decode([]byte(`{"type":"media","username":"alice"}`))
	require.Error(t, err)

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Contains(t, e.Details, "data")
	assert.Contains(t, e.Details, "contentType")
}

func TestJSONCodec_DecodeUnknownTypeIsIgnored(t *testing.T) {
	codec := NewJSONCodec(0)

	for _, typ := range []string{"typing", "", "JOIN", "ignored", "oversize_media"} {
		event, err := codec.Decode([]byte(`{"type":"` + typ + `","username":"alice"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.Ignored{Type: typ}, event)
	}
}

func TestJSONCodec_DecodeAllowsEmptyValues(t *testing.T) {
	codec := NewJSONCodec(0)

	event, err := codec.Decode([]byte(`{"type":"join","username":""}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Join{Username: ""}, event)

	event, err = codec.Decode([]byte(`{"type":"users","users":[]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RosterUpdate{}, event)
}

func TestJSONCodec_MediaSizeBound(t *testing.T) {
	codec := NewJSONCodec(4)

	mediaFrame := func(data []byte) []byte {
		encoded := base64.StdEncoding.EncodeToString(data)
		return []byte(`{"type":"media","username":"alice","data":"` + encoded + `","contentType":"application/octet-stream"}`)
	}

	t.Run("at the limit", func(t *testing.T) {
		event, err := codec.Decode(mediaFrame([]byte("abcd")))
		require.NoError(t, err)
		assert.Equal(t, domain.MediaMessage{Username: "alice", Data: []byte("abcd"), ContentType: "application/octet-stream"}, event)
	})

	t.Run("one byte over", func(t *testing.T) {
		event, err := codec.Decode(mediaFrame([]byte("abcde")))
		require.NoError(t, err)
		assert.Equal(t, domain.OversizeMedia{Username: "alice", Size: 5, Limit: 4}, event)
	})

	t.Run("empty payload", func(t *testing.T) {
		event, err := codec.Decode(mediaFrame(nil))
		require.NoError(t, err)
		media, ok := event.(domain.MediaMessage)
		require.True(t, ok)
		assert.Empty(t, media.Data)
	})
}

func TestJSONCodec_DefaultBoundRejectsElevenMiB(t *testing.T) {
	codec := NewJSONCodec(0)
	require.Equal(t, DefaultMaxMediaSize, codec.MaxMediaSize())

	data := strings.Repeat("A", 11*1024*1024/3*4)
	event, err := codec.Decode([]byte(`{"type":"media","username":"alice","data":"` + data + `","contentType":"video/mp4"}`))
	require.NoError(t, err)

	oversize, ok := event.(domain.OversizeMedia)
	require.True(t, ok, "got %T", event)
	assert.Greater(t, int64(oversize.Size), DefaultMaxMediaSize)
}

func TestJSONCodec_DataURLKeptVerbatim(t *testing.T) {
	codec := NewJSONCodec(0)

	tests := []struct {
		name        string
		frame       string
		contentType string
	}{
		{
			name:        "empty content type stays empty",
			frame:       `{"type":"media","username":"alice","data":"data:image/gif;base64,R0lG","contentType":""}`,
			contentType: "",
		},
		{
			name:        "declared content type wins",
			frame:       `{"type":"media","username":"alice","data":"data:image/gif;base64,R0lG","contentType":"image/x-custom"}`,
			contentType: "image/x-custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := codec.Decode([]byte(tt.frame))
			require.NoError(t, err)

			media, ok := event.(domain.MediaMessage)
			require.True(t, ok, "got %T", event)
			assert.Equal(t, []byte("GIF"), media.Data)
			assert.Equal(t, tt.contentType, media.ContentType)
			assert.Equal(t, "data:image/gif;base64,", media.DataURL)

			frame, err := codec.Encode(media)
			require.NoError(t, err)
			assert.JSONEq(t, tt.frame, string(frame))
		})
	}
}

func TestJSONCodec_PlainMediaKeptVerbatim(t *testing.T) {
	codec := NewJSONCodec(0)
	in := `{"type":"media","username":"alice","data":"AAECAw==","contentType":""}`

	event, err := codec.Decode([]byte(in))
	require.NoError(t, err)

	frame, err := codec.Encode(event)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(frame))
}

func TestJSONCodec_EncodeUnsupported(t *testing.T) {
	codec := NewJSONCodec(0)

	for _, event := range []domain.Event{domain.Ignored{Type: "x"}, domain.OversizeMedia{}, nil} {
		frame, err := codec.Encode(event)
		require.Error(t, err)
		assert.Nil(t, frame)
		assert.True(t, stderrors.Is(err, errors.ErrUnsupportedEvent))
	}
}
