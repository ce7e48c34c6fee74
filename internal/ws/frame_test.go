package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Message(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"message","text":"hello"}`))
	require.NoError(t, err)
	mf, ok := f.(MessageFrame)
	require.True(t, ok)
	require.Equal(t, "hello", mf.Text)
	require.Nil(t, mf.Attachment)
}

func TestDecodeFrame_MessageWithAttachment(t *testing.T) {
	raw := `{"type":"message","text":"","attachment":{"url":"https://cdn.example/a.png","name":"a.png","mime":"image/png","category":"image","size":123}}`
	f, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	mf, ok := f.(MessageFrame)
	require.True(t, ok)
	require.NotNil(t, mf.Attachment)
	require.Equal(t, "image/png", mf.Attachment.Mime)
	require.EqualValues(t, 123, mf.Attachment.Size)
}

func TestDecodeFrame_Typing(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"typing","is_typing":true}`))
	require.NoError(t, err)
	tf, ok := f.(TypingFrame)
	require.True(t, ok)
	require.True(t, tf.IsTyping)
}

func TestDecodeFrame_Read(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"read","message_ids":[1,2,3]}`))
	require.NoError(t, err)
	rf, ok := f.(ReadFrame)
	require.True(t, ok)
	require.Equal(t, []uint{1, 2, 3}, rf.MessageIDs)
}

func TestDecodeFrame_Rejected(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"presence"}`))
	require.Error(t, err)

	_, err = DecodeFrame([]byte(`not json`))
	require.Error(t, err)
}
